package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv loads KEY=VALUE files into the process environment. Variables
// already set win, and missing files are skipped. With no arguments ".env"
// in the working directory is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// DeployEnv is the environment of a non-interactive deployment.
type DeployEnv struct {
	PrivateKey string
	RPCURL     string
}

// ReadDeployEnv reads PRIVATE_KEY and RPC_URL. Both are required.
func ReadDeployEnv() (*DeployEnv, error) {
	env := &DeployEnv{
		PrivateKey: strings.TrimSpace(os.Getenv(EnvPrivateKey)),
		RPCURL:     strings.TrimSpace(os.Getenv(EnvRPCURL)),
	}
	var missing []string
	if env.PrivateKey == "" {
		missing = append(missing, EnvPrivateKey)
	}
	if env.RPCURL == "" {
		missing = append(missing, EnvRPCURL)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing environment: %s", strings.Join(missing, ", "))
	}
	return env, nil
}
