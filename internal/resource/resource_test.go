package resource_test

import (
	"errors"
	"strconv"
	"testing"

	"github.com/JunaidJamshid123/Gitly-sub001/internal/resource"
)

func TestMap(t *testing.T) {
	double := func(n int) string { return strconv.Itoa(n * 2) }

	mapped := resource.Map(resource.Success(21), double)
	if got, ok := mapped.Data(); !ok || got != "42" {
		t.Errorf("Map(Success(21)) = %v, want Success(42)", mapped)
	}

	if loading := resource.Map(resource.Loading[int](), double); !loading.IsLoading() {
		t.Errorf("Map(Loading) = %v, want Loading", loading)
	}

	failure := resource.NewFailure(resource.Timeout, "slow", nil)
	failed := resource.Map(resource.Fail[int](failure), double)
	if failed.State() != resource.StateError || failed.Failure() != failure {
		t.Errorf("Map(Error) = %v, want the same Error", failed)
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name string
		res  resource.Resource[int]
		want bool
	}{
		{name: "loading", res: resource.Loading[int](), want: false},
		{name: "zero value", res: resource.Resource[int]{}, want: false},
		{name: "success", res: resource.Success(1), want: true},
		{name: "error", res: resource.Fail[int](resource.NewFailure(resource.Decode, "bad", nil)), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStale(t *testing.T) {
	stale := resource.Stale(7)
	if data, ok := stale.Data(); !ok || data != 7 || !stale.IsTerminal() {
		t.Errorf("Stale(7) = %v, want a terminal Success", stale)
	}
	if !stale.IsStale() || stale.IsSettled() {
		t.Errorf("Stale(7): IsStale = %v, IsSettled = %v", stale.IsStale(), stale.IsSettled())
	}
	if fresh := resource.Success(7); fresh.IsStale() || !fresh.IsSettled() || fresh.Equal(stale) {
		t.Errorf("Success(7) should be settled and differ from Stale(7)")
	}
	if mapped := resource.Map(stale, strconv.Itoa); !mapped.IsStale() {
		t.Errorf("Map(Stale) = %v, want a stale result", mapped)
	}
	if resource.Loading[int]().IsSettled() {
		t.Error("Loading should not be settled")
	}
}

func TestEqual(t *testing.T) {
	timeoutA := resource.Fail[[]string](resource.NewFailure(resource.Timeout, "first message", nil))
	timeoutB := resource.Fail[[]string](resource.NewFailure(resource.Timeout, "other message", errors.New("x")))
	network := resource.Fail[[]string](resource.NewFailure(resource.NetworkUnavailable, "first message", nil))
	http404 := resource.Fail[[]string](&resource.Failure{Kind: resource.HTTPStatus, Code: 404})
	http500 := resource.Fail[[]string](&resource.Failure{Kind: resource.HTTPStatus, Code: 500})

	tests := []struct {
		name string
		a, b resource.Resource[[]string]
		want bool
	}{
		{name: "loading", a: resource.Loading[[]string](), b: resource.Loading[[]string](), want: true},
		{name: "equal payloads", a: resource.Success([]string{"a", "b"}), b: resource.Success([]string{"a", "b"}), want: true},
		{name: "different payloads", a: resource.Success([]string{"a"}), b: resource.Success([]string{"b"}), want: false},
		{name: "same kind different message", a: timeoutA, b: timeoutB, want: true},
		{name: "different kinds", a: timeoutA, b: network, want: false},
		{name: "different status codes", a: http404, b: http500, want: false},
		{name: "different variants", a: resource.Loading[[]string](), b: resource.Success([]string{}), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFold(t *testing.T) {
	describe := func(r resource.Resource[int]) string {
		return resource.Fold(r,
			func() string { return "loading" },
			func(n int) string { return "value " + strconv.Itoa(n) },
			func(f *resource.Failure) string { return "failed " + f.Kind.String() },
		)
	}

	if got := describe(resource.Loading[int]()); got != "loading" {
		t.Errorf("Fold(Loading) = %q", got)
	}
	if got := describe(resource.Success(7)); got != "value 7" {
		t.Errorf("Fold(Success) = %q", got)
	}
	if got := describe(resource.Fail[int](resource.NewFailure(resource.Decode, "", nil))); got != "failed decode" {
		t.Errorf("Fold(Error) = %q", got)
	}
}

func TestFailNilFailure(t *testing.T) {
	r := resource.Fail[int](nil)
	if r.Failure() == nil || r.Failure().Kind != resource.Unknown {
		t.Errorf("Fail(nil) should record an Unknown failure, got %v", r.Failure())
	}
}

func TestFailureRetryable(t *testing.T) {
	tests := []struct {
		name    string
		failure resource.Failure
		want    bool
	}{
		{name: "network", failure: resource.Failure{Kind: resource.NetworkUnavailable}, want: true},
		{name: "timeout", failure: resource.Failure{Kind: resource.Timeout}, want: true},
		{name: "not found", failure: resource.Failure{Kind: resource.HTTPStatus, Code: 404}, want: false},
		{name: "rate limited", failure: resource.Failure{Kind: resource.HTTPStatus, Code: 429}, want: true},
		{name: "server error", failure: resource.Failure{Kind: resource.HTTPStatus, Code: 502}, want: true},
		{name: "decode", failure: resource.Failure{Kind: resource.Decode}, want: false},
		{name: "unknown", failure: resource.Failure{Kind: resource.Unknown}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.failure.Retryable(); got != tt.want {
				t.Errorf("Retryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFailureUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	failure := resource.NewFailure(resource.LocalStoreFailure, "failed to save favorite", cause)

	if !errors.Is(failure, cause) {
		t.Error("Failure should unwrap to its cause")
	}
	var target *resource.Failure
	if !errors.As(error(failure), &target) || target.Kind != resource.LocalStoreFailure {
		t.Error("errors.As should find the failure")
	}
}
