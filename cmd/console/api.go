package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/druid-of-peace/internal/handlers"
	"github.com/jwebster45206/druid-of-peace/pkg/content"
	"github.com/jwebster45206/druid-of-peace/pkg/game"
	"github.com/jwebster45206/druid-of-peace/pkg/state"
)

// apiClient talks to the game API.
type apiClient struct {
	baseURL string
	client  *http.Client
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// do sends body as JSON and decodes the response into out. A status other
// than want is returned as an error carrying the API's message.
func (c *apiClient) do(method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err != nil || errorResp.Error == "" {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func gamePath(id uuid.UUID, rest string) string {
	return "/v1/games/" + id.String() + rest
}

func (c *apiClient) getContent() (*content.Library, error) {
	var lib content.Library
	if err := c.do(http.MethodGet, "/v1/content", nil, http.StatusOK, &lib); err != nil {
		return nil, err
	}
	return &lib, nil
}

func (c *apiClient) listGames() ([]state.Summary, error) {
	var resp struct {
		Games []state.Summary `json:"games"`
	}
	if err := c.do(http.MethodGet, "/v1/games", nil, http.StatusOK, &resp); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

func (c *apiClient) createGame() (*state.GameState, error) {
	var gs state.GameState
	if err := c.do(http.MethodPost, "/v1/games", nil, http.StatusCreated, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (c *apiClient) getGame(id uuid.UUID) (*state.GameState, error) {
	var gs state.GameState
	if err := c.do(http.MethodGet, gamePath(id, ""), nil, http.StatusOK, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

func (c *apiClient) advance(id uuid.UUID) (*handlers.AdvanceResponse, error) {
	var out handlers.AdvanceResponse
	if err := c.do(http.MethodPost, gamePath(id, "/map/advance"), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) travel(id uuid.UUID, zone string) (*handlers.TravelResponse, error) {
	var out handlers.TravelResponse
	req := handlers.TravelRequest{Zone: zone}
	if err := c.do(http.MethodPost, gamePath(id, "/map/travel"), req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) useMapItem(id uuid.UUID, item string) (*handlers.MapItemResponse, error) {
	var out handlers.MapItemResponse
	req := handlers.MapItemRequest{Item: item}
	if err := c.do(http.MethodPost, gamePath(id, "/map/items"), req, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) startEncounter(id uuid.UUID) (*game.ActionResult, error) {
	var out game.ActionResult
	if err := c.do(http.MethodPost, gamePath(id, "/encounter"), nil, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) act(id uuid.UUID, a game.Action) (*game.ActionResult, error) {
	var out game.ActionResult
	if err := c.do(http.MethodPost, gamePath(id, "/encounter/actions"), a, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) skills(id uuid.UUID) (*handlers.SkillsResponse, error) {
	var out handlers.SkillsResponse
	if err := c.do(http.MethodGet, gamePath(id, "/skills"), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// changeSkill learns or claims a skill; op is "learn" or "claim".
func (c *apiClient) changeSkill(id uuid.UUID, skillID, op string) (*handlers.SkillsResponse, error) {
	var out handlers.SkillsResponse
	if err := c.do(http.MethodPost, gamePath(id, "/skills/"+skillID+"/"+op), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) history(id uuid.UUID) (*handlers.HistoryResponse, error) {
	var out handlers.HistoryResponse
	if err := c.do(http.MethodGet, gamePath(id, "/history"), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SSEEvent represents an event from the SSE stream
type SSEEvent struct {
	Type string
	Data json.RawMessage
}

// listenToSSE connects to the SSE endpoint and streams events to a channel
func listenToSSE(ctx context.Context, client *http.Client, baseURL string, gameID uuid.UUID, eventChan chan<- SSEEvent) error {
	url := fmt.Sprintf("%s/v1/events/games/%s", baseURL, gameID.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to SSE: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("SSE connection failed with status %d: %s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	var currentEvent SSEEvent

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Empty line signals end of event
			if currentEvent.Type != "" {
				select {
				case eventChan <- currentEvent:
				case <-ctx.Done():
					return ctx.Err()
				}
				currentEvent = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			currentEvent.Type = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			currentEvent.Data = json.RawMessage(strings.TrimPrefix(line, "data: "))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading SSE stream: %w", err)
	}
	return nil
}
