//go:build !(aix || linux || solaris || darwin || dragonfly || freebsd || netbsd || openbsd)

package progress

func setupSignals() {}
