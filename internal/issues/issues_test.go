package issues

import (
	"context"
	"errors"
	"os/exec"
	"reflect"
	"strings"
	"testing"
)

const listOutput = `[
  {"number": 12, "title": "Add export", "body": "CSV and JSON", "url": "https://github.com/acme/app/issues/12",
   "labels": [{"name": "feature"}, {"name": "area/api"}]},
  {"number": 3, "title": "Fix login", "body": "", "url": "https://github.com/acme/app/issues/3",
   "labels": [{"name": "bug"}]},
  {"number": 7, "title": "Docs", "body": "Write docs", "url": "https://github.com/acme/app/issues/7",
   "labels": []}
]`

type recorder struct {
	name string
	args []string
}

func fakeExecutor(rec *recorder, output string, err error) CommandExecutor {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if rec != nil {
			rec.name = name
			rec.args = args
		}
		return []byte(output), err
	}
}

func numbers(list []Issue) []int {
	out := make([]int, len(list))
	for i, issue := range list {
		out[i] = issue.Number
	}
	return out
}

func TestListBuildsCommand(t *testing.T) {
	var rec recorder
	src, err := NewSource(Options{Repo: "acme/app", Limit: 10}, fakeExecutor(&rec, "[]", nil))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	if _, err := src.List(context.Background()); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if rec.name != "gh" {
		t.Errorf("binary = %q, want gh", rec.name)
	}
	want := []string{"issue", "list", "--state", "open", "--limit", "10", "--json", "number,title,body,labels,url", "--repo", "acme/app"}
	if !reflect.DeepEqual(rec.args, want) {
		t.Errorf("args = %v, want %v", rec.args, want)
	}
}

func TestListWithoutRepoOmitsFlag(t *testing.T) {
	src, err := NewSource(Options{GHBinary: "/opt/gh"}, nil)
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	for _, arg := range src.Args() {
		if arg == "--repo" {
			t.Errorf("Args() = %v, want no --repo", src.Args())
		}
	}
	if !strings.Contains(strings.Join(src.Args(), " "), "--limit 30") {
		t.Errorf("Args() = %v, want default limit", src.Args())
	}
}

func TestListParsesAndSorts(t *testing.T) {
	src, err := NewSource(Options{Repo: "acme/app"}, fakeExecutor(nil, listOutput, nil))
	if err != nil {
		t.Fatalf("NewSource() error = %v", err)
	}
	got, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []int{3, 7, 12}; !reflect.DeepEqual(numbers(got), want) {
		t.Errorf("List() numbers = %v, want %v", numbers(got), want)
	}
	if !reflect.DeepEqual(got[2].Labels, []string{"feature", "area/api"}) {
		t.Errorf("Labels = %v", got[2].Labels)
	}
	if got[2].URL != "https://github.com/acme/app/issues/12" {
		t.Errorf("URL = %q", got[2].URL)
	}
}

func TestListLabelFilters(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		want   []int
	}{
		{"no filter", nil, []int{3, 7, 12}},
		{"exact", []string{"bug"}, []int{3}},
		{"glob", []string{"area/*"}, []int{12}},
		{"any of", []string{"bug", "feat*"}, []int{3, 12}},
		{"no match", []string{"wontfix"}, []int{}},
		{"blank patterns ignored", []string{"  "}, []int{3, 7, 12}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(Options{Labels: tt.labels}, fakeExecutor(nil, listOutput, nil))
			if err != nil {
				t.Fatalf("NewSource() error = %v", err)
			}
			got, err := src.List(context.Background())
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if !reflect.DeepEqual(numbers(got), tt.want) {
				t.Errorf("List() numbers = %v, want %v", numbers(got), tt.want)
			}
		})
	}
}

func TestNewSourceValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"bad repo", Options{Repo: "not a repo"}},
		{"repo without owner", Options{Repo: "app"}},
		{"bad state", Options{State: "merged"}},
		{"negative limit", Options{Limit: -1}},
		{"bad glob", Options{Labels: []string{"[unclosed"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSource(tt.opts, nil); err == nil {
				t.Error("NewSource() error = nil, want error")
			}
		})
	}
}

func TestListErrors(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		err     error
		wantErr error
	}{
		{"not installed", "", &exec.Error{Name: "gh", Err: exec.ErrNotFound}, ErrGHNotInstalled},
		{"auth", "To get started with GitHub CLI, please run:  gh auth login", errors.New("exit status 4"), ErrGHAuthRequired},
		{"repo", "GraphQL: Could not resolve to a Repository with the name 'acme/nope'.", errors.New("exit status 1"), ErrRepoNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := NewSource(Options{Repo: "acme/nope"}, fakeExecutor(nil, tt.output, tt.err))
			if err != nil {
				t.Fatalf("NewSource() error = %v", err)
			}
			_, err = src.List(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("List() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestListUnknownFailureKeepsOutput(t *testing.T) {
	src, _ := NewSource(Options{}, fakeExecutor(nil, "HTTP 502: bad gateway", errors.New("exit status 1")))
	_, err := src.List(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad gateway") {
		t.Errorf("List() error = %v, want gh output in message", err)
	}
}

func TestListInvalidJSON(t *testing.T) {
	src, _ := NewSource(Options{}, fakeExecutor(nil, "not json", nil))
	if _, err := src.List(context.Background()); err == nil {
		t.Error("List() error = nil, want parse error")
	}
}

func TestListCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src, _ := NewSource(Options{}, fakeExecutor(nil, "", errors.New("signal: killed")))
	if _, err := src.List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("List() error = %v, want context.Canceled", err)
	}
}

func TestIssueText(t *testing.T) {
	if got := (Issue{Title: "T", Body: "  "}).Text(); got != "T" {
		t.Errorf("Text() = %q, want %q", got, "T")
	}
	if got := (Issue{Title: "T", Body: "B\n"}).Text(); got != "T\n\nB" {
		t.Errorf("Text() = %q, want %q", got, "T\n\nB")
	}
}
