package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// palette holds ANSI color codes. The zero value prints plain text.
type palette struct {
	reset, red, green, yellow, cyan, gray, bold string
}

var ansi = palette{
	reset:  "\033[0m",
	red:    "\033[31m",
	green:  "\033[32m",
	yellow: "\033[33m",
	cyan:   "\033[36m",
	gray:   "\033[90m",
	bold:   "\033[1m",
}

// apiClient performs one gateway call per command and renders the exchange.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
	out     io.Writer
	quiet   bool
	verbose bool
	colors  palette
}

func newClient(cmd *cobra.Command, opts *options) *apiClient {
	c := &apiClient{
		baseURL: strings.TrimSuffix(opts.gatewayURL, "/"),
		token:   opts.token,
		http:    &http.Client{Timeout: opts.timeout},
		out:     cmd.OutOrStdout(),
		quiet:   opts.quiet,
		verbose: opts.verbose,
	}
	if !opts.noColor {
		c.colors = ansi
	}
	return c
}

// apiError is a non-2xx gateway response.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s (HTTP %d)", e.Code, e.Message, e.Status)
}

// do sends body as JSON and decodes a 2xx response into result.
func (c *apiClient) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	var reqJSON []byte
	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	if c.verbose {
		c.printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if c.verbose {
		c.printResponse(resp.StatusCode, respBody, duration)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, respBody)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

func parseError(status int, body []byte) error {
	var wire struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Code != "" {
		return &apiError{Status: status, Code: wire.Error.Code, Message: wire.Error.Message}
	}
	return &apiError{Status: status, Message: strings.TrimSpace(string(body))}
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func (c *apiClient) printRequest(method, path string, body []byte) {
	fmt.Fprintf(c.out, "\n%s▶ REQUEST%s %s%s %s%s\n", c.colors.yellow, c.colors.reset, c.colors.bold, method, path, c.colors.reset)
	if body != nil {
		c.printJSON(body, "  ")
	}
}

func (c *apiClient) printResponse(status int, body []byte, duration time.Duration) {
	statusColor := c.colors.green
	if status >= 400 {
		statusColor = c.colors.red
	}
	fmt.Fprintf(c.out, "\n%s◀ RESPONSE%s %s%d%s (%v)\n", c.colors.cyan, c.colors.reset, statusColor, status, c.colors.reset, duration)
	c.printJSON(body, "  ")
}

func (c *apiClient) printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Fprintf(c.out, "%s%s\n", prefix, string(data))
		return
	}
	fmt.Fprintln(c.out, pretty.String())
}

// printValue is the only output in quiet mode.
func (c *apiClient) printValue(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *apiClient) printSuccess(format string, args ...any) {
	if !c.quiet {
		fmt.Fprintf(c.out, "%s✓ %s%s\n", c.colors.green, fmt.Sprintf(format, args...), c.colors.reset)
	}
}

func (c *apiClient) printWarning(format string, args ...any) {
	if !c.quiet {
		fmt.Fprintf(c.out, "%s⚠ %s%s\n", c.colors.yellow, fmt.Sprintf(format, args...), c.colors.reset)
	}
}

func (c *apiClient) printField(label, value string) {
	if !c.quiet {
		fmt.Fprintf(c.out, "  %s%-16s%s %s\n", c.colors.gray, label, c.colors.reset, value)
	}
}
