// Package syncclient is the HTTP client for the remote sync service. The
// service exposes three operations: init (idempotent registration), push
// (batched dirty records) and pull (change log pages after a sequence
// number). Request and response shapes mirror the service API and are
// defined here independently.
package syncclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is an HTTP client for the sync server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a new sync client.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// --- Wire shapes ---
//
// Entity payloads carry the LWW envelope (updated_at, updated_by) but never
// the local dirty flag. Booleans cross the wire as 0/1 integers and the
// monthdays set as its JSON-array string, matching the service schema.

// TodoDTO is the wire shape of a todo.
type TodoDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Memo      string `json:"memo"`
	SortOrder int    `json:"sort_order"`
	IsDeleted int    `json:"is_deleted"`
	DeletedAt *int64 `json:"deleted_at,omitempty"`
	UpdatedAt int64  `json:"updated_at"`
	UpdatedBy string `json:"updated_by"`
}

// HabitDTO is the wire shape of a habit.
type HabitDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Memo       string `json:"memo"`
	SortOrder  int    `json:"sort_order"`
	IsArchived int    `json:"is_archived"`
	UpdatedAt  int64  `json:"updated_at"`
	UpdatedBy  string `json:"updated_by"`
}

// HabitRuleDTO is the wire shape of a recurrence rule history row.
type HabitRuleDTO struct {
	ID            string `json:"id"`
	HabitID       string `json:"habit_id"`
	Type          string `json:"type"`
	WeekdaysMask  int    `json:"weekdays_mask,omitempty"`
	MonthdaysJSON string `json:"monthdays_json,omitempty"`
	EffectiveFrom string `json:"effective_from_habit_day"`
	UpdatedAt     int64  `json:"updated_at"`
	UpdatedBy     string `json:"updated_by"`
}

// HabitCompletionDTO is the wire shape of a completion.
type HabitCompletionDTO struct {
	HabitID   string `json:"habit_id"`
	HabitDay  string `json:"habit_day"`
	Done      int    `json:"done"`
	UpdatedAt int64  `json:"updated_at"`
	UpdatedBy string `json:"updated_by"`
}

// InitRequest is the body for POST /init.
type InitRequest struct {
	SyncKey  string `json:"sync_key"`
	DeviceID string `json:"device_id"`
}

// InitResponse is the response from an init request.
type InitResponse struct {
	OK bool `json:"ok"`
}

// PushRequest is the body for POST /push. Kinds with nothing dirty are
// omitted.
type PushRequest struct {
	SyncKey     string               `json:"sync_key"`
	DeviceID    string               `json:"device_id"`
	Todos       []TodoDTO            `json:"todos,omitempty"`
	Habits      []HabitDTO           `json:"habits,omitempty"`
	Rules       []HabitRuleDTO       `json:"habit_rule_histories,omitempty"`
	Completions []HabitCompletionDTO `json:"habit_completions,omitempty"`
}

// PushResponse is the response from a push request.
type PushResponse struct {
	OK              bool  `json:"ok"`
	LatestServerSeq int64 `json:"latest_server_seq"`
}

// PullRequest is the body for POST /pull.
type PullRequest struct {
	SyncKey        string `json:"sync_key"`
	DeviceID       string `json:"device_id"`
	AfterServerSeq int64  `json:"after_server_seq"`
}

// Change is a single change log entry in a pull response.
type Change struct {
	ServerSeq   int64  `json:"server_seq"`
	EntityType  string `json:"entity_type"` // todo, habit, rule, completion
	EntityKey   string `json:"entity_key"`
	PayloadJSON string `json:"payload_json"`
}

// PullResponse is one page of the change log, ordered by server_seq
// ascending.
type PullResponse struct {
	Changes         []Change `json:"changes"`
	LatestServerSeq int64    `json:"latest_server_seq"`
}

// Init announces this device to the server. Registration is idempotent.
func (c *Client) Init(syncKey, deviceID string) error {
	var resp InitResponse
	if err := c.post("/init", InitRequest{SyncKey: syncKey, DeviceID: deviceID}, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("init rejected by server")
	}
	return nil
}

// Push sends a batch of dirty records to the server.
func (c *Client) Push(req PushRequest) (*PushResponse, error) {
	var resp PushResponse
	if err := c.post("/push", req, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("push rejected by server")
	}
	return &resp, nil
}

// Pull fetches one change log page strictly after the given sequence.
func (c *Client) Pull(req PullRequest) (*PullResponse, error) {
	var resp PullResponse
	if err := c.post("/pull", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) post(path string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: HTTP %d: %s", path, resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
