package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/exec"
	"time"

	"ticketd/internal/api"
	"ticketd/internal/config"
)

const (
	serverStartTimeout = 3 * time.Second
	serverPollInterval = 100 * time.Millisecond
	serverPingTimeout  = 500 * time.Millisecond
)

// withClient runs fn against the configured server. A local server is
// started for the duration of the command when none is listening.
func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	stop, err := ensureServer(cfg)
	if err != nil {
		return err
	}
	if stop != nil {
		defer stop()
	}
	return fn(api.NewClient(cfg.APIURL))
}

func ensureServer(cfg *config.Config) (func(), error) {
	client := api.NewClient(cfg.APIURL)
	ctx, cancel := context.WithTimeout(context.Background(), serverPingTimeout)
	defer cancel()
	if err := client.Ping(ctx); err == nil {
		return nil, nil
	}

	if !isLocalAPIURL(cfg.APIURL) {
		return nil, fmt.Errorf("ticketd server at %s is not reachable", cfg.APIURL)
	}

	proc, err := startServerProcess(cfg)
	if err != nil {
		return nil, err
	}
	stop := func() {
		_ = proc.Process.Kill()
		_ = proc.Wait()
	}
	if err := waitForServer(client, serverStartTimeout); err != nil {
		stop()
		return nil, err
	}
	return stop, nil
}

func startServerProcess(cfg *config.Config) (*exec.Cmd, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}

	proc := exec.Command(exe, "srv")
	proc.Env = append(os.Environ(),
		"TICKETD_DB="+cfg.DBPath,
		"TICKETD_API_URL="+cfg.APIURL,
	)
	proc.Stdout = io.Discard
	proc.Stderr = io.Discard
	if err := proc.Start(); err != nil {
		return nil, err
	}
	return proc, nil
}

func waitForServer(client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		// Something else owns the port.
		if !isConnRefused(err) {
			return err
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not start in time")
}

func isConnRefused(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// isLocalAPIURL reports whether the API URL points at this machine, which
// is the only case where starting a server makes sense.
func isLocalAPIURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
