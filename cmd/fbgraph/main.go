// fbgraph is a command line client for the Graph API.
//
// Usage:
//
//	fbgraph verify [flags] <signed_request>
//	fbgraph get [flags] <path>
//	fbgraph app-token [flags]
//	fbgraph extend-token [flags]
//	fbgraph auth-url [flags]
//
// Flag defaults come from FBGRAPH_APP_ID, FBGRAPH_APP_SECRET,
// FBGRAPH_ENDPOINT, FBGRAPH_TIMEOUT and FBGRAPH_ACCESS_TOKEN.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/fbgraph/internal/config"
	"git.sr.ht/~jakintosh/fbgraph/pkg/auth"
	"git.sr.ht/~jakintosh/fbgraph/pkg/graph"
	"git.sr.ht/~jakintosh/fbgraph/pkg/signedrequest"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

var errUsage = errors.New("usage")

func main() {
	err := run(context.Background(), os.Args[1:], nil, os.Stdout)
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, err)
		printUsage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: fbgraph <command> [flags]

Commands:
  verify <signed_request>   check a signed request and print its payload
  get <path>                read an object or connection
  app-token                 fetch an app access token
  extend-token              exchange a user token for a long-lived one
  auth-url                  print the OAuth dialog URL

Run "fbgraph <command> --help" for command flags.
`)
}

// environment holds the flag defaults read from FBGRAPH_* variables.
type environment struct {
	AppID       string        `env:"APP_ID"`
	AppSecret   string        `env:"APP_SECRET"`
	Endpoint    string        `env:"ENDPOINT"`
	Timeout     time.Duration `env:"TIMEOUT"`
	AccessToken string        `env:"ACCESS_TOKEN"`
}

// loadEnvironment reads environ, or the process environment when environ is
// nil.
func loadEnvironment(environ map[string]string) (*environment, error) {
	e := &environment{
		Endpoint: graph.DefaultEndpoint,
		Timeout:  graph.DefaultTimeout,
	}
	err := env.ParseWithOptions(e, env.Options{
		Prefix:      config.Prefix,
		Environment: environ,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	return e, nil
}

type commonFlags struct {
	appID     string
	appSecret string
	endpoint  string
	timeout   time.Duration
}

func (c *commonFlags) register(fs *pflag.FlagSet, defaults *environment) {
	fs.StringVar(&c.appID, "app-id", defaults.AppID, "application id")
	fs.StringVar(&c.appSecret, "app-secret", defaults.AppSecret, "application secret")
	fs.StringVar(&c.endpoint, "endpoint", defaults.Endpoint, "Graph API base URL")
	fs.DurationVar(&c.timeout, "timeout", defaults.Timeout, "request timeout")
}

func (c *commonFlags) client(accessToken string) *graph.Client {
	return graph.New(
		graph.WithEndpoint(c.endpoint),
		graph.WithTimeout(c.timeout),
		graph.WithAccessToken(accessToken),
	)
}

func (c *commonFlags) requireApp() error {
	if c.appID == "" || c.appSecret == "" {
		return fmt.Errorf("%w: --app-id and --app-secret are required", errUsage)
	}
	return nil
}

func run(
	ctx context.Context,
	args []string,
	environ map[string]string,
	stdout io.Writer,
) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	defaults, err := loadEnvironment(environ)
	if err != nil {
		return err
	}

	command, args := args[0], args[1:]
	switch command {
	case "verify":
		return runVerify(args, defaults, stdout)
	case "get":
		return runGet(ctx, args, defaults, stdout)
	case "app-token":
		return runAppToken(ctx, args, defaults, stdout)
	case "extend-token":
		return runExtendToken(ctx, args, defaults, stdout)
	case "auth-url":
		return runAuthURL(args, defaults, stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func runVerify(
	args []string,
	defaults *environment,
	stdout io.Writer,
) error {
	var common commonFlags
	fs := pflag.NewFlagSet("verify", pflag.ContinueOnError)
	common.register(fs, defaults)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: verify takes exactly one signed request", errUsage)
	}
	if common.appSecret == "" {
		return fmt.Errorf("%w: --app-secret is required", errUsage)
	}

	payload, err := signedrequest.Parse(fs.Arg(0), common.appSecret)
	if err != nil {
		var ctxErr interface{ Context() string }
		if errors.As(err, &ctxErr) {
			return fmt.Errorf("%w: %s", err, ctxErr.Context())
		}
		return err
	}
	return printJSON(stdout, payload.Fields())
}

func runGet(
	ctx context.Context,
	args []string,
	defaults *environment,
	stdout io.Writer,
) error {
	var common commonFlags
	var token string
	var params []string
	fs := pflag.NewFlagSet("get", pflag.ContinueOnError)
	common.register(fs, defaults)
	fs.StringVarP(&token, "token", "t", defaults.AccessToken, "access token")
	fs.StringArrayVarP(&params, "param", "p", nil, "query parameter as key=value (repeatable)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: get takes exactly one path", errUsage)
	}

	query := url.Values{}
	for _, p := range params {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return fmt.Errorf("%w: bad parameter %q, expected key=value", errUsage, p)
		}
		query.Add(key, value)
	}

	res, err := common.client(token).GetObject(ctx, fs.Arg(0), query)
	if err != nil {
		return err
	}
	if data, ok := res["data"].([]byte); ok {
		_, err := stdout.Write(data)
		return err
	}
	return printJSON(stdout, res)
}

func runAppToken(
	ctx context.Context,
	args []string,
	defaults *environment,
	stdout io.Writer,
) error {
	var common commonFlags
	fs := pflag.NewFlagSet("app-token", pflag.ContinueOnError)
	common.register(fs, defaults)
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := common.requireApp(); err != nil {
		return err
	}

	token, err := common.client("").GetAppAccessToken(ctx, common.appID, common.appSecret)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func runExtendToken(
	ctx context.Context,
	args []string,
	defaults *environment,
	stdout io.Writer,
) error {
	var common commonFlags
	var token string
	fs := pflag.NewFlagSet("extend-token", pflag.ContinueOnError)
	common.register(fs, defaults)
	fs.StringVarP(&token, "token", "t", defaults.AccessToken, "short-lived user access token")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := common.requireApp(); err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("%w: --token is required", errUsage)
	}

	extended, err := common.client(token).ExtendAccessToken(ctx, common.appID, common.appSecret)
	if err != nil {
		return err
	}
	return printJSON(stdout, map[string]any{
		"access_token": extended.Token,
		"expires_in":   int64(extended.ExpiresIn / time.Second),
	})
}

func runAuthURL(
	args []string,
	defaults *environment,
	stdout io.Writer,
) error {
	var common commonFlags
	var redirectURI string
	var scope []string
	fs := pflag.NewFlagSet("auth-url", pflag.ContinueOnError)
	common.register(fs, defaults)
	fs.StringVar(&redirectURI, "redirect-uri", "", "where the dialog sends the user back to")
	fs.StringSliceVar(&scope, "scope", nil, "permissions to request, comma separated")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if common.appID == "" {
		return fmt.Errorf("%w: --app-id is required", errUsage)
	}

	_, err := fmt.Fprintln(stdout, auth.AuthURL(common.appID, redirectURI, scope, nil))
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
