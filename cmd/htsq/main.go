// Command htsq prints the records of an indexed BAM or BCF file that
// overlap the given regions. Inputs may be local paths or HTTP URLs.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/nimezhu/netio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nimezhu/hts"
	"github.com/nimezhu/hts/bam"
	"github.com/nimezhu/hts/bcf"
	"github.com/nimezhu/hts/bgzf"
	"github.com/nimezhu/hts/csi"
	"github.com/nimezhu/hts/query"
	"github.com/nimezhu/hts/region"
)

func main() {
	cfg := &Config{}
	flag.StringVar(&cfg.Input, "i", "", "BAM or BCF file, local path or URL")
	flag.StringVar(&cfg.Index, "x", "", "Index file (default: input with .bai or .csi appended)")
	flag.Var(&cfg.Regions, "r", "Region as chr, chr:start or chr:start-end (repeatable)")
	flag.StringVar(&cfg.LogLevel, "log.level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.MetricsAddr, "metrics.addr", "", "Address to expose Prometheus metrics on while querying")
	flag.IntVar(&cfg.CacheSize, "cache", 64, "Decompressed BGZF blocks kept in memory")
	flag.Parse()
	cfg.Regions = append(cfg.Regions, flag.Args()...)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	logger := newLogger(log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)), cfg.LogLevel)

	reg := prometheus.NewRegistry()
	metrics := query.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			level.Info(logger).Log("msg", "starting metrics server", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				level.Error(logger).Log("msg", "metrics server failed", "err", err)
			}
		}()
	}

	out := bufio.NewWriter(os.Stdout)
	err := run(cfg, logger, metrics, out)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		level.Error(logger).Log("msg", "query failed", "input", cfg.Input, "err", err)
		os.Exit(1)
	}
}

func run(cfg *Config, logger log.Logger, metrics *query.Metrics, out io.Writer) error {
	f, err := openURI(cfg.Input)
	if err != nil {
		return err
	}
	// the readers below wrap f and are not closed separately
	defer closeQuietly(f)
	format, err := hts.Detect(f)
	if err != nil {
		return err
	}
	if !format.Indexed() {
		return fmt.Errorf("%s: cannot query %s files", cfg.Input, format)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	idx, err := openIndex(cfg.IndexCandidates(format), logger)
	if err != nil {
		return err
	}
	level.Debug(logger).Log("msg", "opened input", "format", format, "refs", idx.ReferenceSequenceCount())

	opts := []query.Option{query.WithLogger(logger), query.WithMetrics(metrics)}
	switch format {
	case hts.BAM:
		r, err := bam.NewReader(f, bgzf.WithCacheSize(cfg.CacheSize))
		if err != nil {
			return err
		}
		return eachRegion(cfg.Regions, func(rg region.Region) error {
			it, err := r.Query(idx, rg.Name, rg.Interval, opts...)
			if err != nil {
				return err
			}
			for rec, err := range it.All() {
				if err != nil {
					return err
				}
				if err := printAlignment(out, r.Header, rec); err != nil {
					return err
				}
			}
			return nil
		})
	case hts.BCF:
		r, err := bcf.NewReader(f, bgzf.WithCacheSize(cfg.CacheSize))
		if err != nil {
			return err
		}
		return eachRegion(cfg.Regions, func(rg region.Region) error {
			it, err := r.Query(idx, rg.Name, rg.Interval, opts...)
			if err != nil {
				return err
			}
			for rec, err := range it.All() {
				if err != nil {
					return err
				}
				if err := printSite(out, r.Header, rec); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return fmt.Errorf("%s: unsupported format %s", cfg.Input, format)
}

func eachRegion(regions []string, fn func(region.Region) error) error {
	for _, s := range regions {
		rg, err := region.Parse(s)
		if err != nil {
			return err
		}
		if err := fn(rg); err != nil {
			return fmt.Errorf("%s: %w", rg, err)
		}
	}
	return nil
}

var errNoIndex = errors.New("no index found")

// openURI opens local paths and HTTP URLs.
var openURI = netio.NewReadSeeker

func closeQuietly(r io.Reader) {
	if c, ok := r.(io.Closer); ok {
		c.Close()
	}
}

// openIndex reads the first candidate that can be opened.
func openIndex(candidates []string, logger log.Logger) (*csi.Index, error) {
	for _, uri := range candidates {
		r, err := openURI(uri)
		if err != nil {
			level.Debug(logger).Log("msg", "index not available", "uri", uri, "err", err)
			continue
		}
		idx, err := csi.Open(r)
		closeQuietly(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", uri, err)
		}
		return idx, nil
	}
	return nil, fmt.Errorf("%w: tried %s", errNoIndex, strings.Join(candidates, ", "))
}

func printAlignment(w io.Writer, h *bam.Header, rec *bam.Record) error {
	chrom := "*"
	if id := rec.ReferenceSequenceID(); id >= 0 && id < len(h.References) {
		chrom = h.References[id].Name
	}
	_, err := fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%s\t%s\n",
		rec.Name(), rec.Flags, chrom, rec.Pos+1, rec.MapQ, rec.Cigar(), rec.Sequence())
	return err
}

func printSite(w io.Writer, h *bcf.Header, rec *bcf.Record) error {
	chrom, _ := h.StringMaps.Contigs.StringAt(rec.ChromID)
	id := rec.ID
	if id == "" {
		id = "."
	}
	ref, alt := ".", "."
	if len(rec.Alleles) > 0 {
		ref = rec.Alleles[0]
	}
	if len(rec.Alleles) > 1 {
		alt = strings.Join(rec.Alleles[1:], ",")
	}
	qual := "."
	if !rec.QualMissing() {
		qual = fmt.Sprintf("%g", rec.Qual)
	}
	filter := "."
	status, ok, err := rec.FilterStatus(h.StringMaps.Strings)
	if err != nil {
		return err
	}
	if ok {
		filter = status.String()
	}
	_, err = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n", chrom, rec.Pos+1, id, ref, alt, qual, filter)
	return err
}
