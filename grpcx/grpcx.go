// Package grpcx maps tagged errors onto gRPC status errors.
//
// Services register which classification tag translates to which code once,
// at startup, and install the interceptor; handlers keep returning plain
// errors built with the oof package.
package grpcx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/sirkon/oof"
)

// Mapper translates classification tags into gRPC codes and retry hints.
// Register everything before serving; Mapper is not safe for concurrent
// mutation.
type Mapper struct {
	codes    map[*oof.Tag]codes.Code
	retry    map[*oof.Tag]time.Duration
	fallback codes.Code
	domain   string
}

// NewMapper creates a mapper that answers codes.Unknown for anything it has
// no registration for. The domain goes into ErrorInfo details verbatim.
func NewMapper(domain string) *Mapper {
	return &Mapper{
		codes:    make(map[*oof.Tag]codes.Code),
		retry:    make(map[*oof.Tag]time.Duration),
		fallback: codes.Unknown,
		domain:   domain,
	}
}

// Register maps a tag to a code. The latest registration for a tag wins.
func (m *Mapper) Register(t *oof.Tag, c codes.Code) *Mapper {
	m.codes[t] = c
	return m
}

// RegisterRetry marks a tag as retryable with the given backoff, surfaced
// to clients as a RetryInfo detail.
func (m *Mapper) RegisterRetry(t *oof.Tag, backoff time.Duration) *Mapper {
	m.retry[t] = backoff
	return m
}

// Fallback overrides the code used when no tag in the error matches.
func (m *Mapper) Fallback(c codes.Code) *Mapper {
	m.fallback = c
	return m
}

// Code resolves err to a gRPC code. The first registered tag found walking
// the causal chain outermost-first wins.
func (m *Mapper) Code(err error) codes.Code {
	t, ok := m.match(err)
	if !ok {
		return m.fallback
	}
	return m.codes[t]
}

func (m *Mapper) match(err error) (*oof.Tag, bool) {
	for _, t := range oof.AllTags(err) {
		if _, ok := m.codes[t]; ok {
			return t, true
		}
	}
	return nil, false
}

// Status builds the full gRPC status for err: the resolved code, the
// one-line message, plus ErrorInfo, DebugInfo and, for retryable tags,
// RetryInfo details.
func (m *Mapper) Status(err error) *status.Status {
	matched, ok := m.match(err)
	code := m.fallback
	if ok {
		code = m.codes[matched]
	}
	base := status.New(code, err.Error())

	info := &errdetails.ErrorInfo{
		Domain:   m.domain,
		Metadata: map[string]string{},
	}
	if ok {
		info.Reason = matched.Name()
	}
	var o *oof.Oof
	if errors.As(err, &o) {
		info.Metadata["location"] = o.Location().String()
	}

	debug := &errdetails.DebugInfo{
		Detail: fmt.Sprintf("%+v", err),
	}
	for cause := range oof.Causes(err) {
		debug.StackEntries = append(debug.StackEntries, cause.Error())
	}

	with, werr := base.WithDetails(info, debug)
	if werr != nil {
		return base
	}

	if ok {
		if backoff, retryable := m.retry[matched]; retryable {
			if rich, rerr := with.WithDetails(&errdetails.RetryInfo{
				RetryDelay: durationpb.New(backoff),
			}); rerr == nil {
				with = rich
			}
		}
	}
	return with
}

// UnaryServerInterceptor converts handler errors into gRPC status errors
// through m. Errors that already are status errors pass through untouched.
func UnaryServerInterceptor(m *Mapper) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		if err == nil {
			return resp, nil
		}
		if _, ok := status.FromError(err); ok {
			return nil, err
		}
		return nil, m.Status(err).Err()
	}
}
