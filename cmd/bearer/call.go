package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"git.sr.ht/~jakintosh/bearer/internal/config"
	"git.sr.ht/~jakintosh/bearer/pkg/client"
	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
)

func runCall(ctx context.Context, cfg config.Config, store credentials.Store, args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	method := fs.String("X", http.MethodGet, "HTTP method")
	data := fs.String("d", "", "request body; '@file' reads a file, '-' reads stdin")
	asJSON := fs.Bool("json", false, "send the body as application/json")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return errors.New("expected exactly one path")
	}

	body, err := readBody(*data)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	c, err := client.New(cfg.ClientOptions(store))
	if err != nil {
		return err
	}

	verb := strings.ToUpper(*method)
	if *asJSON {
		return callJSON(ctx, c, verb, fs.Arg(0), body)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	res, err := c.Call(ctx, verb, fs.Arg(0), reader)
	if err != nil {
		return explain(err)
	}
	defer res.Body.Close()

	fmt.Fprintf(os.Stderr, "%s\n", res.Status)
	if _, err := io.Copy(os.Stdout, res.Body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if res.StatusCode == http.StatusUnauthorized {
		return errors.New("still unauthorized after refresh")
	}
	return nil
}

// callJSON sends body verbatim as JSON and prints the decoded response
// indented.
func callJSON(ctx context.Context, c *client.Client, method string, path string, body []byte) error {
	var in any
	if body != nil {
		if !json.Valid(body) {
			return errors.New("body is not valid JSON")
		}
		in = json.RawMessage(body)
	}

	var out json.RawMessage
	if err := c.DoJSON(ctx, method, path, in, &out); err != nil {
		return explain(err)
	}
	if len(out) == 0 {
		return nil
	}

	indented := bytes.Buffer{}
	if err := json.Indent(&indented, out, "", "  "); err != nil {
		return fmt.Errorf("failed to format response: %w", err)
	}
	indented.WriteByte('\n')
	_, err := indented.WriteTo(os.Stdout)
	return err
}

func explain(err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("%w; sign in again with 'bearer tokens set'", err)
	}
	return err
}

func readBody(data string) ([]byte, error) {
	switch {
	case data == "":
		return nil, nil
	case data == "-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(data, "@"):
		return os.ReadFile(data[1:])
	default:
		return []byte(data), nil
	}
}
