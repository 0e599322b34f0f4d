package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mdp/qrterminal/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/guilhermegouw/voxchat/internal/debug"
	"github.com/guilhermegouw/voxchat/internal/rpc"
	"github.com/guilhermegouw/voxchat/internal/voice"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON-RPC endpoint for browser and phone clients",
		Long: `Serve JSON-RPC 2.0 over WebSocket. The connecting client captures
speech and plays answers; voxchat parses the commands, keeps the chats and
talks to the model.

Clients authenticate with the token from server.token in the config, or a
random one printed at startup. Send SIGHUP to pick up edited provider keys
and endpoints.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (default from config)")
	cmd.Flags().Bool("qr", true, "Print a QR code of the connection URL")
	cmd.Flags().Bool("insecure-origins", false, "Accept WebSocket connections from any origin")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	token := a.cfg.Server.Token
	if token != "" {
		if token, err = a.cfg.Resolve(token); err != nil {
			return fmt.Errorf("server token: %w", err)
		}
	} else {
		token = uuid.New().String()
	}

	addr := a.cfg.Server.Addr
	if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
		addr = flagAddr
	}

	opts := []rpc.Option{
		rpc.WithVersion(version),
		rpc.WithSessionBroker(a.hub.Session),
		rpc.WithBrokers(a.hub.Registry()),
		rpc.WithVoice(a.cfg.Voice.Lang, voice.SpeakOptions{Lang: a.cfg.Voice.Lang, Rate: a.cfg.Voice.Rate}),
	}
	if insecure, _ := cmd.Flags().GetBool("insecure-origins"); insecure {
		opts = append(opts, rpc.WithInsecureOrigins())
	}
	srv := rpc.NewServer(token, a.ctrl, opts...)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	httpServer := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}

	out := cmd.OutOrStdout()
	link := connectURL(a.cfg.Server.PublicURL, ln.Addr().String(), token)
	fmt.Fprintf(out, "Serving %s\n", link)
	if showQR, _ := cmd.Flags().GetBool("qr"); showQR {
		qrterminal.GenerateHalfBlock(link, qrterminal.L, out)
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				if err := a.reloadProviders(cmd); err != nil {
					debug.Error("serve", err, "SIGHUP")
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
				}
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		debug.Event("serve", "Shutdown", "")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// connectURL is the WebSocket URL a client opens, with the token as a
// query parameter.
func connectURL(public, listenAddr, token string) string {
	base := public
	if base == "" {
		base = "ws://" + listenAddr
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = rpc.Path
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
