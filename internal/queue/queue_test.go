package queue

import (
	"errors"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []TaskOutcome
		want     int
	}{
		{
			name:     "nothing attempted",
			outcomes: nil,
			want:     3,
		},
		{
			name: "all succeeded",
			outcomes: []TaskOutcome{
				{Task: Task{TaskID: "a"}},
				{Task: Task{TaskID: "b"}},
			},
			want: 0,
		},
		{
			name: "all failed",
			outcomes: []TaskOutcome{
				{Task: Task{TaskID: "a"}, Err: errors.New("boom")},
				{Task: Task{TaskID: "b"}, Err: errors.New("boom")},
			},
			want: 1,
		},
		{
			name: "partial success",
			outcomes: []TaskOutcome{
				{Task: Task{TaskID: "a"}},
				{Task: Task{TaskID: "b"}, Err: errors.New("boom")},
			},
			want: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.outcomes); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
