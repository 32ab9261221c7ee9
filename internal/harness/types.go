package harness

import "fmt"

// Scenario is a scripted session against the services.
type Scenario struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Users       map[string]string `yaml:"users"` // user id -> display name
	Steps       []Step            `yaml:"steps"`
}

// Op names a step operation.
type Op string

const (
	OpRemoteDown Op = "remote_down"
	OpRemoteUp   Op = "remote_up"
	OpCreate     Op = "create"
	OpGet        Op = "get"
	OpList       Op = "list"
	OpRemove     Op = "remove"
	OpSetStatus  Op = "set_status"
	OpSync       Op = "sync"
	OpToggle     Op = "toggle"
	OpFavorites  Op = "favorites"
	OpSend       Op = "send"
	OpHistory    Op = "history"
)

var knownOps = map[Op]bool{
	OpRemoteDown: true, OpRemoteUp: true,
	OpCreate: true, OpGet: true, OpList: true, OpRemove: true, OpSetStatus: true, OpSync: true,
	OpToggle: true, OpFavorites: true,
	OpSend: true, OpHistory: true,
}

// Step is one operation in a scenario.
//
// Listing and Recipient may reference a name bound by an earlier create step
// as "$name".
type Step struct {
	Op        Op             `yaml:"op"`
	User      string         `yaml:"user,omitempty"`
	Listing   string         `yaml:"listing,omitempty"`
	Recipient string         `yaml:"recipient,omitempty"`
	Status    string         `yaml:"status,omitempty"`
	Text      string         `yaml:"text,omitempty"`
	As        string         `yaml:"as,omitempty"`
	Draft     map[string]any `yaml:"draft,omitempty"`
	Expect    *Expect        `yaml:"expect,omitempty"`
}

// Expect holds the optional checks for a step. Unset fields are not checked.
type Expect struct {
	// Error is the error kind the step must fail with, e.g. "not_found".
	Error     string   `yaml:"error,omitempty"`
	Local     *bool    `yaml:"local,omitempty"`
	Count     *int     `yaml:"count,omitempty"`
	IDs       []string `yaml:"ids,omitempty"`
	Favorites []string `yaml:"favorites,omitempty"`
	Texts     []string `yaml:"texts,omitempty"`
	Status    string   `yaml:"status,omitempty"`
	Synced    *int     `yaml:"synced,omitempty"`
	Pending   *int     `yaml:"pending,omitempty"`
}

// TraceEvent records what one step did.
type TraceEvent struct {
	Step    int    `json:"step"`
	Op      Op     `json:"op"`
	Outcome string `json:"outcome"`
	Data    any    `json:"data,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	Pass   bool         `json:"pass"`
	Trace  []TraceEvent `json:"trace"`
	Errors []string     `json:"errors,omitempty"`
}

func (r *Result) failf(step int, format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf("step %d: ", step)+fmt.Sprintf(format, args...))
}

type createdData struct {
	ID    string `json:"id"`
	Local bool   `json:"local"`
}

type listingData struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type syncData struct {
	Synced  int `json:"synced"`
	Pending int `json:"pending"`
}

type sentData struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}
