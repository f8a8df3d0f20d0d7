package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fin-c3po/api-contract-tests/apiclient"
	"github.com/fin-c3po/api-contract-tests/apitests"
	"github.com/fin-c3po/api-contract-tests/fakeservice"
	"github.com/fin-c3po/api-contract-tests/framework"
	"github.com/fin-c3po/api-contract-tests/tokenstore"
)

const (
	exitOK            = 0
	exitTestsFailed   = 1
	exitRunFailed     = 1
	exitInvalidParams = 2

	shutdownTimeout = 5 * time.Second
)

var (
	errTestsFailed = errors.New("some tests failed")
	errRunFailed   = errors.New("test run could not complete")
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand(os.Getenv)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errTestsFailed):
		return exitTestsFailed
	case errors.Is(err, errRunFailed):
		fmt.Fprintln(stderr, err)
		return exitRunFailed
	default:
		fmt.Fprintf(stderr, "Invalid parameters: %s\n", err)
		return exitInvalidParams
	}
}

func newRootCommand(getenv func(string) string) *cobra.Command {
	var params commandParams
	cmd := &cobra.Command{
		Use:   "c3po-api-tests",
		Short: "Run integration tests against the C3PO REST API",
		Long: `Logs in to a running C3PO service and exercises its authentication,
user administration, course content and AI assistant endpoints, printing
a PASS or FAIL line for every check and a summary at the end.

The exit status is 0 when every check passed, 1 when any check failed or
the run could not complete, and 2 when the parameters are invalid.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := params.resolve(cmd.Flags(), getenv); err != nil {
				return err
			}
			err := runTests(params, cmd.OutOrStdout())
			if err != nil && !errors.Is(err, errTestsFailed) {
				return fmt.Errorf("%w: %w", errRunFailed, err)
			}
			return err
		},
	}
	params.addFlags(cmd.Flags())
	cmd.AddCommand(newFakeCommand())
	return cmd
}

func newHarnessLogger(debug bool) (*zap.Logger, error) {
	if !debug {
		return zap.NewNop(), nil
	}
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func runTests(params commandParams, out io.Writer) error {
	logger, err := newHarnessLogger(params.debugAll)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("run", uuid.NewString()))
	harnessLog := framework.ZapLogger(logger)

	if params.wait > 0 {
		if err := apiclient.AwaitService(params.serviceURL, params.wait, out); err != nil {
			return fmt.Errorf("service is not available: %w", err)
		}
	}

	tokens := tokenstore.New(params.tokenFile)
	clearToken := func() {
		if err := tokens.Clear(); err != nil {
			logger.Warn("could not remove token file", zap.String("path", tokens.Path()), zap.Error(err))
		}
	}
	clearToken()
	defer clearToken()
	harnessLog.Printf("token file is %s", tokens.Path())

	client := apiclient.NewClient(params.serviceURL, params.timeout, tokens)

	fmt.Fprintf(out, "Running API tests against %s\n", client.BaseURL())
	fmt.Fprintln(out)
	framework.PrintFilterDescription(params.filters, out)

	testLogger := NewConsoleTestLogger(out, !params.noColor)
	testLogger.DebugOutputOnFailure = params.debug || params.debugAll
	testLogger.DebugOutputOnSuccess = params.debugAll

	started := time.Now()
	results := apitests.RunTestSuite(
		apitests.Config{
			Client: client,
			Tokens: tokens,
			Admin: apitests.Credentials{
				Identifier: params.adminIdentifier,
				Password:   params.adminPassword,
			},
		},
		params.filters.AsFilter,
		testLogger,
	)
	logger.Info("test run finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("passed", results.Tally.Passed),
		zap.Int("failed", results.Tally.Failed),
		zap.Int("warnings", results.Tally.Warnings),
		zap.Int("skipped", results.Tally.Skipped),
	)

	fmt.Fprintln(out)
	framework.PrintResults(results, out)
	if !results.OK() {
		return errTestsFailed
	}
	return nil
}

func newFakeCommand() *cobra.Command {
	var (
		addr            string
		adminIdentifier string
		adminPassword   string
		allowedOrigins  []string
	)
	cmd := &cobra.Command{
		Use:   "fake",
		Short: "Serve an in-memory implementation of the API under /api",
		Long: `Starts a local server that implements the endpoints exercised by the tests,
keeping all state in memory. It is meant for trying out the test runner and
for front-end development without a database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			service := fakeservice.New(adminIdentifier, adminPassword)

			r := chi.NewRouter()
			r.Use(middleware.Logger)
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: allowedOrigins,
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "Accept"},
			}))
			r.Mount("/api", service.Handler())

			server := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()

			logger.Info("fake service listening",
				zap.String("addr", addr),
				zap.String("admin", adminIdentifier),
			)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("fake service stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "address to listen on")
	cmd.Flags().StringVar(&adminIdentifier, "admin-identifier", defaultAdminIdentifier, "username of the built-in administrator")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "admin-password", "password of the built-in administrator")
	cmd.Flags().StringSliceVar(&allowedOrigins, "allow-origin", []string{"http://localhost:3000"},
		"origins allowed to call the service from a browser")
	return cmd
}
