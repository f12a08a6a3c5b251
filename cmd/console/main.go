package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    30 * time.Second,
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	api := &apiClient{baseURL: cfg.APIBaseURL, client: client}

	lib, err := api.getContent()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load game content: %v\n", err)
		os.Exit(1)
	}

	gs, err := chooseGame(api)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start game: %v\n", err)
		os.Exit(1)
	}

	// The stream stays open for the whole session, so it gets a client
	// without a timeout. Servers without event streaming just close it.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan SSEEvent, 16)
	go func() {
		_ = listenToSSE(ctx, &http.Client{}, cfg.APIBaseURL, gs.ID, events)
	}()

	p := tea.NewProgram(NewConsoleUI(cfg, api, lib, gs, events),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// chooseGame lists saved games and lets the player resume one or start a
// new one.
func chooseGame(api *apiClient) (*state.GameState, error) {
	games, err := api.listGames()
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return api.createGame()
	}

	fmt.Println("Saved Games:")
	fmt.Println("  0 - New game")
	for i, g := range games {
		where := g.CurrentZone
		if g.InEncounter {
			where += ", in an encounter"
		}
		fmt.Printf("  %d - Day %d at %s (%d encounters) %s\n", i+1, g.Day, where, g.Encounters, g.ID.String()[:8])
	}
	fmt.Print("\nSelect a game by number: ")

	var choice int
	if _, err := fmt.Scanf("%d", &choice); err != nil || choice < 0 || choice > len(games) {
		return nil, fmt.Errorf("invalid selection")
	}
	if choice == 0 {
		return api.createGame()
	}
	return api.getGame(games[choice-1].ID)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
