package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/weaveui/weave"
	"github.com/weaveui/weave/manifest"
	sink "github.com/weaveui/weave/sink/html"
)

var (
	serveAddr      string
	serveStateFile string
)

// indexPage is the live-preview shell: it mirrors hub frames into the page
// and reports clicks on identified elements back over the socket.
const indexPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>weave</title></head>
<body>
<div id="weave-root">connecting...</div>
<script>
const root = document.getElementById("weave-root");
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = (e) => {
  const msg = JSON.parse(e.data);
  if (msg.type === "frame") root.innerHTML = msg.html;
  if (msg.type === "error") root.textContent = "error: " + msg.html;
};
root.addEventListener("click", (e) => {
  const el = e.target.closest("[id]");
  if (el && el.id !== "weave-root") ws.send(JSON.stringify({type: "click", id: el.id}));
});
</script>
</body>
</html>`

// serveCmd runs a live HTML preview of a manifest.
var serveCmd = &cobra.Command{
	Use:   "serve <manifest.yaml>",
	Short: "Serve a live HTML preview",
	Long: `Serve the manifest over HTTP with a websocket session per browser:
every binding change pushes a fresh frame, page clicks feed back into
the mounted tree.

The listen address comes from --addr, or WEAVE_ADDR (a .env file in the
working directory is honored).`,
	Example: `  # Serve on the default address
  weave serve app.yaml

  # Pick an address and a state snapshot
  weave serve app.yaml --addr :9000 --state state.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := cliLogger()
		def, err := manifest.LoadFile(args[0])
		if err != nil {
			return err
		}
		part, err := def.Build()
		if err != nil {
			return err
		}
		state, err := loadState(serveStateFile)
		if err != nil {
			return err
		}

		hub := sink.NewHub(func() (weave.Renderable, error) {
			return weave.Mount(part, constantFlow(state), weave.WithLogger(logger))
		}, sink.WithLogger(logger))

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(indexPage))
		})
		mux.Handle("/ws", hub)

		srv := &http.Server{
			Addr:              listenAddr(),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("serving", "addr", srv.Addr, "manifest", def.Name)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func listenAddr() string {
	if serveAddr != "" {
		return serveAddr
	}
	_ = godotenv.Load()
	if addr := os.Getenv("WEAVE_ADDR"); addr != "" {
		return addr
	}
	return ":8080"
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default WEAVE_ADDR or :8080)")
	serveCmd.Flags().StringVar(&serveStateFile, "state", "", "JSON state snapshot file")
	rootCmd.AddCommand(serveCmd)
}
