package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Store credentials in the config file",
	}

	cmd.AddCommand(newAuthTokenCmd())
	return cmd
}

func newAuthTokenCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "token <tracker|llm>",
		Short: "Prompt for an API token and save it to the config file",
		Long:  "Reads the token from the terminal without echo and writes it under tracker.token or llm.api_key.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthToken(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "ticketyard.yaml", "path to Ticketyard config file")
	return cmd
}

func runAuthToken(cmd *cobra.Command, configPath, target string) error {
	out := cmd.OutOrStdout()

	var section, key string
	switch target {
	case "tracker":
		section, key = "tracker", "token"
	case "llm":
		section, key = "llm", "api_key"
	default:
		return fmt.Errorf("unknown token target %q (tracker, llm)", target)
	}

	fmt.Fprintf(out, "Enter %s token (input hidden): ", target)
	token, err := readToken()
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("empty token")
	}

	if err := writeConfigValue(configPath, section, key, token); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s.%s to %s\n", section, key, configPath)
	return nil
}

// readToken reads a token without echo when stdin is a terminal, falling
// back to a plain line read for piped input.
func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		data, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	var line string
	if _, err := fmt.Fscanln(os.Stdin, &line); err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// writeConfigValue rewrites one nested scalar in the YAML config, keeping
// the rest of the document intact.
func writeConfigValue(path, section, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	sub, _ := doc[section].(map[string]interface{})
	if sub == nil {
		sub = map[string]interface{}{}
	}
	sub[key] = value
	doc[section] = sub

	updated, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, updated, 0600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
