package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	b, err := adminCall(http.MethodGet, adminURL(*baseURL, "/admin/v1/state", nil), 5*time.Second)
	if len(b) > 0 {
		fmt.Println(string(b))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	mapOut := fs.String("map", "", "also download the live map png to this path (optional)")
	scale := fs.Int("scale", 4, "pixels per cell for -map")
	_ = fs.Parse(args)

	b, err := adminCall(http.MethodPost, adminURL(*baseURL, "/admin/v1/snapshot", nil), 10*time.Second)
	if len(b) > 0 {
		fmt.Println(string(b))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if strings.TrimSpace(*mapOut) == "" {
		return
	}

	q := url.Values{"scale": {strconv.Itoa(*scale)}}
	png, err := adminCall(http.MethodGet, adminURL(*baseURL, "/admin/v1/map.png", q), 30*time.Second)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := os.WriteFile(*mapOut, png, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "write map:", err)
		os.Exit(1)
	}
	fmt.Printf("map ok: out=%s bytes=%d\n", *mapOut, len(png))
}

func adminURL(base, path string, q url.Values) string {
	u := strings.TrimRight(strings.TrimSpace(base), "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// adminCall returns the body even on non-2xx so callers can print the server's error.
func adminCall(method, u string, timeout time.Duration) ([]byte, error) {
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return nil, err
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return b, fmt.Errorf("%s %s: %s", method, u, resp.Status)
	}
	return b, nil
}
