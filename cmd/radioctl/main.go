// Package main provides the remote control CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/19radio/internal/api/connect"
)

var (
	app    = kingpin.New("19radio-ctl", "19radio remote control")
	server = app.Flag("server", "Server address").Default("http://127.0.0.1:8765").Envar("RADIO_SERVER").String()
	token  = app.Flag("token", "Control token (or set RADIO_CONTROL_TOKEN env)").Envar("RADIO_CONTROL_TOKEN").String()

	// status command
	statusCmd = app.Command("status", "Show player status").Default()

	// play command
	playCmd = app.Command("play", "Start playback")

	// pause command
	pauseCmd = app.Command("pause", "Pause playback")

	// volume command
	volumeCmd   = app.Command("volume", "Set the volume (0-100)").Alias("vol")
	volumeValue = volumeCmd.Arg("value", "Volume").Required().Int()

	// history command
	historyCmd = app.Command("history", "List recently played stations")

	// watch command
	watchCmd = app.Command("watch", "Watch state changes")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	ctx := context.Background()

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		status(ctx, client)
	case playCmd.FullCommand():
		control(ctx, "play", client.Play)
	case pauseCmd.FullCommand():
		control(ctx, "pause", client.Pause)
	case volumeCmd.FullCommand():
		control(ctx, "volume", func(ctx context.Context) (*apiconnect.StateView, error) {
			return client.SetVolume(ctx, *volumeValue)
		})
	case historyCmd.FullCommand():
		listHistory(ctx, client)
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

func status(ctx context.Context, client *apiconnect.Client) {
	state, err := client.GetState(ctx)
	if err != nil {
		exitWithError(err)
	}

	fmt.Println("Station:")
	fmt.Printf("  Name: %s\n", state.Station.Name)
	if state.Station.Genre != "" {
		fmt.Printf("  Genre: %s\n", state.Station.Genre)
	}
	fmt.Printf("  URL: %s\n", state.Station.URL)
	fmt.Printf("  Live: %v\n", state.Station.Live)
	fmt.Println()
	printState(state)
	fmt.Printf("  Levels: %v\n", state.Levels)
}

func control(ctx context.Context, name string, call func(context.Context) (*apiconnect.StateView, error)) {
	state, err := call(ctx)
	if err != nil {
		exitWithError(err)
	}

	fmt.Printf("%s: ok\n", name)
	printState(state)
}

func listHistory(ctx context.Context, client *apiconnect.Client) {
	entries, err := client.ListHistory(ctx)
	if err != nil {
		exitWithError(err)
	}

	if len(entries) == 0 {
		fmt.Println("No stations played yet")
		return
	}

	fmt.Printf("Recently played (%d):\n", len(entries))
	for i, e := range entries {
		fmt.Printf("  %2d. %s  %s", i+1, e.PlayedAt.Local().Format("2006-01-02 15:04:05"), e.StationName)
		if e.Genre != "" {
			fmt.Printf(" (%s)", e.Genre)
		}
		fmt.Println()
	}
}

func watch(ctx context.Context, client *apiconnect.Client) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Watching player state. Press Ctrl+C to exit.")

	err := client.WatchState(ctx, func(v *apiconnect.StateView) error {
		fmt.Printf("\n[Sequence: %d] === %s ===\n", v.SequenceNo, strings.ToUpper(strings.ReplaceAll(v.Type, "_", " ")))
		if v.Previous != "" && v.Previous != v.Status {
			fmt.Printf("  Previous: %s\n", formatStatus(v.Previous))
		}
		printState(v)
		return nil
	})
	if err != nil {
		fmt.Printf("Stream error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nUnsubscribed")
}

func printState(state *apiconnect.StateView) {
	fmt.Printf("  Status: %s\n", formatStatus(state.Status))
	fmt.Printf("  Volume: %d%%\n", state.Volume)
	if state.ErrorMessage != "" {
		fmt.Printf("  Error: %s\n", state.ErrorMessage)
	}
}

func formatStatus(status string) string {
	switch status {
	case "idle":
		return "⏹  Idle"
	case "connecting":
		return "⏳ Connecting"
	case "playing":
		return "▶️  Playing"
	case "paused":
		return "⏸  Paused"
	case "failed":
		return "❌ Failed"
	default:
		return "❓ Unknown"
	}
}

func exitWithError(err error) {
	if connect.CodeOf(err) == connect.CodeUnauthenticated {
		fmt.Println("Error: control token rejected (use --token or RADIO_CONTROL_TOKEN env)")
		os.Exit(1)
	}
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}
