package main

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const readHeaderTimeout = 10 * time.Second

// listen binds port, moving to port+1 and onwards while the address is in use.
func listen(port, fallbackAttempts int, logger *zap.Logger) (net.Listener, int, error) {
	var lastErr error
	for i := 0; i <= fallbackAttempts; i++ {
		candidate := port + i
		ln, err := net.Listen("tcp", ":"+strconv.Itoa(candidate))
		if err == nil {
			if i > 0 {
				logger.Warn("configured port busy, using fallback", zap.Int("configured", port), zap.Int("port", candidate))
			}
			return ln, candidate, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, 0, err
		}
		logger.Warn("port in use", zap.Int("port", candidate))
		lastErr = err
	}
	return nil, 0, fmt.Errorf("no free port in %d-%d: %w", port, port+fallbackAttempts, lastErr)
}

// rebaseURL swaps the port in a default localhost base URL after a fallback.
// Explicitly configured public URLs are left alone.
func rebaseURL(baseURL string, configured, actual int) string {
	suffix := ":" + strconv.Itoa(configured)
	if !strings.HasSuffix(baseURL, suffix) {
		return baseURL
	}
	return strings.TrimSuffix(baseURL, suffix) + ":" + strconv.Itoa(actual)
}
