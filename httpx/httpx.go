// Package httpx maps tagged errors onto HTTP responses with a JSON body.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirkon/oof"
)

// Mapper translates classification tags into HTTP status codes. Register
// everything before serving; Mapper is not safe for concurrent mutation.
type Mapper struct {
	statuses map[*oof.Tag]int
	fallback int
}

// NewMapper creates a mapper answering 500 for anything unregistered.
func NewMapper() *Mapper {
	return &Mapper{
		statuses: make(map[*oof.Tag]int),
		fallback: http.StatusInternalServerError,
	}
}

// Register maps a tag to a status code. The latest registration wins.
func (m *Mapper) Register(t *oof.Tag, status int) *Mapper {
	m.statuses[t] = status
	return m
}

// Fallback overrides the status used when no tag in the error matches.
func (m *Mapper) Fallback(status int) *Mapper {
	m.fallback = status
	return m
}

// StatusCode resolves err to a status code. The first registered tag found
// walking the causal chain outermost-first wins.
func (m *Mapper) StatusCode(err error) int {
	for _, t := range oof.AllTags(err) {
		if s, ok := m.statuses[t]; ok {
			return s
		}
	}
	return m.fallback
}

// View is the JSON body written for an error.
type View struct {
	Message  string   `json:"message"`
	Location string   `json:"location,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Details  []string `json:"details,omitempty"`
	Causes   []string `json:"causes,omitempty"`
}

// Writer turns errors into HTTP responses. With Expose unset only the
// message and the mapped status leave the process; locations, attachments
// and causes stay server-side.
type Writer struct {
	Mapper *Mapper
	Expose bool
}

// Write resolves the status through the mapper and writes the JSON view.
// A nil err writes nothing.
func (w Writer) Write(rw http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	view := View{Message: err.Error()}

	var o *oof.Oof
	if errors.As(err, &o) {
		view.Message = o.Message()
		if w.Expose {
			view.Location = o.Location().String()
			view.Details = o.Attachments()
			for cause := range oof.Causes(o) {
				view.Causes = append(view.Causes, cause.Error())
			}
		}
	}
	for _, t := range oof.AllTags(err) {
		view.Tags = append(view.Tags, t.Name())
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(w.Mapper.StatusCode(err))
	_ = json.NewEncoder(rw).Encode(view)
}
