package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/devkat/CodeExpertDesktop/internal/logging"
	"github.com/devkat/CodeExpertDesktop/pkg/apiclient"
)

// cliVersion is reported to the server during registration.
const cliVersion = "0.1.0"

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Generate (or reuse) a signing key and register this device",
	RunE:  runLogin,
}

func runLogin(cmd *cobra.Command, args []string) error {
	logger := logging.New(logLevel(cmd))
	defer logger.Sync() //nolint:errcheck

	signer := apiclient.NewPrivateKeySigner()
	if data, err := os.ReadFile(cfg.PrivateKeyPath); err == nil {
		if err := signer.LoadPEM(data); err != nil {
			return fmt.Errorf("existing key at %s is unreadable: %w", cfg.PrivateKeyPath, err)
		}
		logger.Info("reusing existing signing key", zap.String("path", cfg.PrivateKeyPath))
	} else {
		if err := signer.Generate(); err != nil {
			return fmt.Errorf("generate signing key: %w", err)
		}
		pem, err := signer.EncodePEM()
		if err != nil {
			return fmt.Errorf("encode signing key: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(cfg.PrivateKeyPath), 0o700); err != nil {
			return fmt.Errorf("create key directory: %w", err)
		}
		// 0600: a signing key is never synced content and must stay
		// unreadable to anyone but the owning user.
		if err := os.WriteFile(cfg.PrivateKeyPath, pem, 0o600); err != nil {
			return fmt.Errorf("persist signing key: %w", err)
		}
		logger.Info("generated new signing key", zap.String("path", cfg.PrivateKeyPath))
	}

	serverURL := overrideServer(cmd)
	client := apiclient.New(apiclient.Config{BaseURL: serverURL, Signer: signer})

	ctx := cmd.Context()
	token, err := client.FetchClientID(ctx)
	if err != nil {
		return fmt.Errorf("fetch enrolment token: %w", err)
	}

	hostname, _ := os.Hostname()
	clientID, err := client.Register(ctx, apiclient.RegisterRequest{
		OS:          runtime.GOOS,
		Name:        hostname,
		Version:     cliVersion,
		Token:       token,
		Permissions: []string{"sync"},
	})
	if err != nil {
		return fmt.Errorf("register device: %w", err)
	}

	path := settingsPath(cfg.StorePath)
	s := loadSettings(path)
	s["clientId"] = clientID
	s["projectDir"] = overrideProjectDir(cmd)
	s["server"] = serverURL
	if err := saveSettings(path, s); err != nil {
		return fmt.Errorf("persist settings: %w", err)
	}

	fmt.Printf("Registered client %s against %s\n", clientID, serverURL)
	return nil
}
