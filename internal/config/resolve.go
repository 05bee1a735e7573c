package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"
)

// resolveTimeout bounds external secret helpers.
const resolveTimeout = 15 * time.Second

// ResolveValue expands secret references in config values:
//   - op://vault/item/field[?account=x] reads a 1Password secret via `op read`
//   - $(cmd) runs cmd with sh and uses its trimmed stdout
//   - ${VAR} or $VAR reads an environment variable
//
// Anything else is returned unchanged.
func ResolveValue(value string) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "", nil
	case strings.HasPrefix(value, "op://"):
		args, err := onePasswordArgs(value)
		if err != nil {
			return "", err
		}
		out, err := runHelper("op", args...)
		if err != nil {
			return "", fmt.Errorf("1password: %w (is 'op' installed and signed in?)", err)
		}
		return out, nil
	case strings.HasPrefix(value, "$(") && strings.HasSuffix(value, ")"):
		return runHelper("sh", "-c", value[2:len(value)-1])
	default:
		return expandEnv(value), nil
	}
}

// onePasswordArgs turns op://vault/item/field?account=a into the arguments
// for `op read`.
func onePasswordArgs(ref string) ([]string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("1password: invalid reference %s: %w", ref, err)
	}
	args := []string{"read", "op://" + u.Host + u.Path}
	if account := u.Query().Get("account"); account != "" {
		args = append(args, "--account", account)
	}
	return args, nil
}

func runHelper(name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%s failed: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("%s failed: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}
