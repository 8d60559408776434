package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type tokenOptions struct {
	Secret   string
	Email    string
	Name     string
	Audience string
	Issuer   string
	TTL      time.Duration
}

// signToken returns an HS256 token for subject accepted by site-api in local
// or test auth mode.
func signToken(subject string, opts tokenOptions, now time.Time) (string, error) {
	if opts.Secret == "" {
		return "", errors.New("a signing secret is required (--secret, TEST_JWT_SECRET or LOCAL_AUTH_SHARED_SECRET)")
	}
	if subject == "" {
		return "", errors.New("subject must not be empty")
	}
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(opts.TTL).Unix(),
	}
	if opts.Email != "" {
		claims["email"] = opts.Email
	}
	if opts.Name != "" {
		claims["name"] = opts.Name
	}
	if opts.Audience != "" {
		claims["aud"] = opts.Audience
	}
	if opts.Issuer != "" {
		claims["iss"] = opts.Issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(opts.Secret))
}

func subjects(args []string, count int, prefix string, start int) ([]string, error) {
	if count < 1 {
		return nil, errors.New("count must be at least 1")
	}
	if start < 1 {
		return nil, errors.New("start index must be at least 1")
	}
	if len(args) > 0 {
		if count > 1 {
			return nil, errors.New("explicit subject cannot be combined with --count")
		}
		return []string{args[0]}, nil
	}
	if count == 1 {
		return []string{prefix}, nil
	}
	out := make([]string, count)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, start+i)
	}
	return out, nil
}

func writeTokens(path string, tokens []string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := sonic.Marshal(tokens)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func defaultSecret() string {
	if s := os.Getenv("LOCAL_AUTH_SHARED_SECRET"); s != "" {
		return s
	}
	return os.Getenv("TEST_JWT_SECRET")
}

func newRootCmd() *cobra.Command {
	opts := tokenOptions{}
	var (
		count  int
		prefix string
		start  int
		output string
	)
	cmd := &cobra.Command{
		Use:   "gen-token [subject]",
		Short: "Print an HS256 token for site-api local auth mode",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subs, err := subjects(args, count, prefix, start)
			if err != nil {
				return err
			}
			now := time.Now()
			tokens := make([]string, len(subs))
			for i, sub := range subs {
				if tokens[i], err = signToken(sub, opts, now); err != nil {
					return err
				}
			}
			if output != "" {
				if err := writeTokens(output, tokens); err != nil {
					return fmt.Errorf("write tokens: %w", err)
				}
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), tokens[0])
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.Secret, "secret", defaultSecret(), "HMAC secret shared with site-api")
	f.StringVar(&opts.Email, "email", "", "email claim")
	f.StringVar(&opts.Name, "name", "", "name claim")
	f.StringVar(&opts.Audience, "aud", os.Getenv("AUTH0_AUDIENCE"), "audience claim")
	f.StringVar(&opts.Issuer, "iss", "", "issuer claim")
	f.DurationVar(&opts.TTL, "ttl", time.Hour, "token lifetime")
	f.IntVar(&count, "count", 1, "number of tokens to generate")
	f.StringVar(&prefix, "prefix", "local-user", "subject, or subject prefix when count > 1")
	f.IntVar(&start, "start", 1, "first index for generated subjects when count > 1")
	f.StringVar(&output, "output", "", "file to write generated tokens as a JSON array")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("gen-token: %v", err)
	}
}
