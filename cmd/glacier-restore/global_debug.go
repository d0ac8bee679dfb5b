//go:build debug || profile

package main

import (
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/marekhanzlik/s3-glacier-restore/internal/errors"
)

type ProfileOptions struct {
	listen    string
	memPath   string
	cpuPath   string
	tracePath string
	blockPath string
}

func (opts *ProfileOptions) AddFlags(f *pflag.FlagSet) {
	f.StringVar(&opts.listen, "listen-profile", "", "listen on this `address:port` for memory profiling")
	f.StringVar(&opts.memPath, "mem-profile", "", "write memory profile to `dir`")
	f.StringVar(&opts.cpuPath, "cpu-profile", "", "write cpu profile to `dir`")
	f.StringVar(&opts.tracePath, "trace-profile", "", "write trace to `dir`")
	f.StringVar(&opts.blockPath, "block-profile", "", "write block profile to `dir`")
}

type profiler struct {
	opts ProfileOptions
	stop interface {
		Stop()
	}
}

func (p *profiler) Start(stderr io.Writer) error {
	if p.opts.listen != "" {
		_, _ = fmt.Fprintf(stderr, "running profile HTTP server on %v\n", p.opts.listen)
		go func() {
			err := http.ListenAndServe(p.opts.listen, nil)
			if err != nil {
				_, _ = fmt.Fprintf(stderr, "profile HTTP server listen failed: %v\n", err)
			}
		}()
	}

	profilesEnabled := 0
	for _, path := range []string{p.opts.memPath, p.opts.cpuPath, p.opts.tracePath, p.opts.blockPath} {
		if path != "" {
			profilesEnabled++
		}
	}
	if profilesEnabled > 1 {
		return errors.Fatal("only one profile (memory, CPU, trace, or block) may be activated at the same time")
	}

	switch {
	case p.opts.memPath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.MemProfile, profile.ProfilePath(p.opts.memPath))
	case p.opts.cpuPath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.CPUProfile, profile.ProfilePath(p.opts.cpuPath))
	case p.opts.tracePath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.TraceProfile, profile.ProfilePath(p.opts.tracePath))
	case p.opts.blockPath != "":
		p.stop = profile.Start(profile.Quiet, profile.NoShutdownHook, profile.BlockProfile, profile.ProfilePath(p.opts.blockPath))
	}

	return nil
}

func (p *profiler) Stop() {
	if p.stop != nil {
		p.stop.Stop()
	}
}

func registerProfiling(cmd *cobra.Command, stderr io.Writer) {
	var p profiler

	origPreRun := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if origPreRun != nil {
			if err := origPreRun(c, args); err != nil {
				return err
			}
		}
		return p.Start(stderr)
	}

	origPostRun := cmd.PersistentPostRun
	cmd.PersistentPostRun = func(c *cobra.Command, args []string) {
		p.Stop()
		if origPostRun != nil {
			origPostRun(c, args)
		}
	}

	p.opts.AddFlags(cmd.PersistentFlags())
}
