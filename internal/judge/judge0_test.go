package judge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/domain"
)

var cProfile = domain.LanguageProfile{ID: 50, Name: "c", Version: "10.2.0", Extension: ".c"}

func TestJudge0Client_Execute(t *testing.T) {
	var got judge0Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions" || r.URL.Query().Get("wait") != "true" || r.URL.Query().Get("base64_encoded") != "false" {
			t.Errorf("unexpected URL %s", r.URL)
		}
		if r.Header.Get("X-RapidAPI-Key") != "secret" || r.Header.Get("X-RapidAPI-Host") != "judge0-ce.p.rapidapi.com" {
			t.Errorf("missing RapidAPI headers: %v", r.Header)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{
			"stdout": "test_two_fer.c:5:test_a:PASS\n",
			"stderr": null,
			"compile_output": null,
			"message": null,
			"time": "0.012",
			"memory": 3240,
			"exit_code": 0,
			"status": {"id": 3, "description": "Accepted"}
		}`))
	}))
	defer server.Close()

	client := NewJudge0Client(Judge0Config{
		BaseURL: server.URL,
		APIKey:  "secret",
		APIHost: "judge0-ce.p.rapidapi.com",
	})
	payload := &domain.Payload{
		Files: []domain.SourceFile{
			{Name: "two_fer.c", Content: "#include \"two_fer.h\"\nvoid two_fer(void) {}"},
			{Name: "two_fer.h", Content: "void two_fer(void);"},
		},
		RunTimeout: 2 * time.Second,
	}

	res, err := client.Execute(context.Background(), payload, cProfile)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got.LanguageID != 50 || got.CPUTimeLimit != 2 {
		t.Errorf("request = %+v", got)
	}
	if strings.Index(got.SourceCode, "void two_fer(void);") > strings.Index(got.SourceCode, "void two_fer(void) {}") {
		t.Error("header should precede the source in the flattened blob")
	}
	if strings.Contains(got.SourceCode, `#include "two_fer.h"`) {
		t.Error("local include of a payload file should be dropped")
	}

	if res.Run.Code != 0 || res.Run.Time != 12*time.Millisecond || res.Run.Memory != 3240 {
		t.Errorf("Run = %+v", res.Run)
	}
	if res.Compile != nil {
		t.Errorf("Compile = %+v, want nil", res.Compile)
	}
}

func TestJudge0Response_ToResult(t *testing.T) {
	str := func(s string) *string { return &s }
	num := func(n int) *int { return &n }

	tests := []struct {
		name    string
		resp    judge0Response
		check   func(t *testing.T, res *domain.ExecutionResult)
		wantErr error
	}{
		{
			name: "compilation error",
			resp: judge0Response{
				CompileOutput: str("main.c:1:1: error: unknown type name 'voi'"),
				Status:        &judge0Status{ID: 6, Description: "Compilation Error"},
			},
			check: func(t *testing.T, res *domain.ExecutionResult) {
				if !res.CompileFailed() || !strings.Contains(res.Compile.Stderr, "unknown type name") {
					t.Errorf("Compile = %+v", res.Compile)
				}
			},
		},
		{
			name: "runtime error with exit code",
			resp: judge0Response{
				Stdout:   str("partial"),
				Stderr:   str("Segmentation fault"),
				ExitCode: num(139),
				Status:   &judge0Status{ID: 11, Description: "Runtime Error (SIGSEGV)"},
				Message:  str("Exited with error status 139"),
			},
			check: func(t *testing.T, res *domain.ExecutionResult) {
				if res.Run.Code != 139 || res.Run.Stdout != "partial" {
					t.Errorf("Run = %+v", res.Run)
				}
				if res.Run.Message != "Runtime Error (SIGSEGV): Exited with error status 139" {
					t.Errorf("Message = %q", res.Run.Message)
				}
			},
		},
		{
			name: "time limit with signal",
			resp: judge0Response{
				ExitSignal: num(9),
				Status:     &judge0Status{ID: 5, Description: "Time Limit Exceeded"},
			},
			check: func(t *testing.T, res *domain.ExecutionResult) {
				if res.Run.Code != 1 || res.Run.Signal != "SIGKILL" {
					t.Errorf("Run = %+v", res.Run)
				}
			},
		},
		{
			name: "accepted with compiler warnings",
			resp: judge0Response{
				CompileOutput: str("warning: unused variable 'x'"),
				Status:        &judge0Status{ID: 3, Description: "Accepted"},
			},
			check: func(t *testing.T, res *domain.ExecutionResult) {
				if res.CompileFailed() || res.Compile == nil || res.Compile.Stderr == "" {
					t.Errorf("Compile = %+v", res.Compile)
				}
			},
		},
		{
			name:    "still processing",
			resp:    judge0Response{Token: "abc", Status: &judge0Status{ID: 2, Description: "Processing"}},
			wantErr: domain.ErrJudgeProtocol,
		},
		{
			name:    "internal error",
			resp:    judge0Response{Status: &judge0Status{ID: 13, Description: "Internal Error"}},
			wantErr: domain.ErrJudgeUnavailable,
		},
		{
			name:    "missing status",
			resp:    judge0Response{},
			wantErr: domain.ErrJudgeProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.resp.toResult()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("toResult() error = %v", err)
			}
			tt.check(t, res)
		})
	}
}

func TestFlattenSources(t *testing.T) {
	files := []domain.SourceFile{
		{Name: "unity.h", Content: "#define UNITY 1"},
		{Name: "unity.c", Content: "#include \"unity.h\"\n#include <stdio.h>\nint unity;"},
		{Name: "leap.h", Content: "int leap(int);"},
		{Name: "leap.c", Content: "#include \"leap.h\"\nint leap(int y) { return y % 4 == 0; }"},
		{Name: "test_leap.c", Content: "#include \"unity.h\"\n#include \"other/dir.h\"\nint main(void) { return 0; }"},
	}

	out := FlattenSources(files)

	order := []string{"/* unity.h */", "/* leap.h */", "/* unity.c */", "/* leap.c */", "/* test_leap.c */"}
	last := -1
	for _, marker := range order {
		i := strings.Index(out, marker)
		if i <= last {
			t.Fatalf("marker %q out of order in:\n%s", marker, out)
		}
		last = i
	}
	if strings.Contains(out, `#include "unity.h"`) || strings.Contains(out, `#include "leap.h"`) {
		t.Error("includes of payload files should be dropped")
	}
	for _, keep := range []string{"#include <stdio.h>", `#include "other/dir.h"`} {
		if !strings.Contains(out, keep) {
			t.Errorf("output should keep %q", keep)
		}
	}
}

func TestFlattenSources_SingleFile(t *testing.T) {
	files := []domain.SourceFile{{Name: "main.js", Content: "console.log(1)"}}
	if got := FlattenSources(files); got != "console.log(1)" {
		t.Errorf("FlattenSources() = %q", got)
	}
}
