package header

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Pass is the filter every VCF header implicitly declares at index 0.
const Pass = "PASS"

// StringMaps are the two dictionaries of a variant header: Strings holds
// FILTER, INFO and FORMAT IDs in one shared index space, Contigs holds
// contig IDs.
type StringMaps struct {
	Strings *StringMap
	Contigs *StringMap
}

var errMalformedMap = errors.New("malformed structured header value")

// ParseStringMaps builds the dictionaries from VCF header text. Only the
// ID and IDX fields of structured lines are looked at.
func ParseStringMaps(text string) (StringMaps, error) {
	maps := StringMaps{Strings: &StringMap{}, Contigs: &StringMap{}}
	var pending, pendingContigs []string
	passExplicit := false

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "##"), "=")
		if !ok || !strings.HasPrefix(line, "##") {
			continue
		}
		var target *StringMap
		switch key {
		case "FILTER", "INFO", "FORMAT":
			target = maps.Strings
		case "contig":
			target = maps.Contigs
		default:
			continue
		}
		fields, err := parseMap(value)
		if err != nil {
			return StringMaps{}, fmt.Errorf("%s: %w", line, err)
		}
		id := fields["ID"]
		if id == "" {
			return StringMaps{}, fmt.Errorf("%s: %w: missing ID", line, errMalformedMap)
		}
		if idx, ok := fields["IDX"]; ok {
			n, err := strconv.Atoi(idx)
			if err != nil {
				return StringMaps{}, fmt.Errorf("%s: invalid IDX: %w", line, err)
			}
			if err := target.Set(n, id); err != nil {
				return StringMaps{}, err
			}
			if id == Pass {
				passExplicit = true
			}
			continue
		}
		if target == maps.Contigs {
			pendingContigs = append(pendingContigs, id)
		} else {
			pending = append(pending, id)
		}
	}
	if err := sc.Err(); err != nil {
		return StringMaps{}, err
	}
	if !passExplicit {
		if s, ok := maps.Strings.StringAt(0); ok && s != Pass {
			return StringMaps{}, fmt.Errorf("%w: index 0 is %q, reserved for %s", ErrDuplicateIdentifier, s, Pass)
		}
		if err := maps.Strings.Set(0, Pass); err != nil {
			return StringMaps{}, err
		}
	}
	for _, id := range pending {
		maps.Strings.Insert(id)
	}
	for _, id := range pendingContigs {
		maps.Contigs.Insert(id)
	}
	return maps, nil
}

// parseMap splits "<K=V,K="quoted, value",...>" into its fields.
func parseMap(s string) (map[string]string, error) {
	if !strings.HasPrefix(s, "<") {
		return nil, fmt.Errorf("%w: invalid prefix", errMalformedMap)
	}
	if !strings.HasSuffix(s, ">") {
		return nil, fmt.Errorf("%w: invalid suffix", errMalformedMap)
	}
	s = s[1 : len(s)-1]
	fields := make(map[string]string)
	for len(s) > 0 {
		key, rest, ok := strings.Cut(s, "=")
		if !ok {
			return nil, fmt.Errorf("%w: field without value", errMalformedMap)
		}
		var value string
		if strings.HasPrefix(rest, `"`) {
			var b strings.Builder
			i := 1
			for ; i < len(rest) && rest[i] != '"'; i++ {
				if rest[i] == '\\' && i+1 < len(rest) {
					i++
				}
				b.WriteByte(rest[i])
			}
			if i >= len(rest) {
				return nil, fmt.Errorf("%w: unterminated string", errMalformedMap)
			}
			value, rest = b.String(), rest[i+1:]
		} else {
			value, rest, _ = strings.Cut(rest, ",")
			rest = "," + rest
		}
		fields[key] = value
		s = strings.TrimPrefix(rest, ",")
	}
	return fields, nil
}
