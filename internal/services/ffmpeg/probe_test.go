package ffmpeg

import (
	"context"
	"errors"
	"testing"

	"whiskproc/internal/services"
)

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    ProbeResult
		wantErr bool
	}{
		{
			name: "complete stream",
			data: `{"streams":[{"width":640,"height":480,"nb_frames":"1200","r_frame_rate":"240/1","duration":"5.0"}]}`,
			want: ProbeResult{Width: 640, Height: 480, FrameCount: 1200, FrameRate: 240},
		},
		{
			name: "nb_frames missing falls back to duration",
			data: `{"streams":[{"width":640,"height":480,"nb_frames":"N/A","r_frame_rate":"240/1","duration":"2.5"}]}`,
			want: ProbeResult{Width: 640, Height: 480, FrameCount: 600, FrameRate: 240},
		},
		{
			name: "fractional frame rate",
			data: `{"streams":[{"width":320,"height":240,"nb_frames":"100","r_frame_rate":"30000/1001","duration":""}]}`,
			want: ProbeResult{Width: 320, Height: 240, FrameCount: 100, FrameRate: 30000.0 / 1001.0},
		},
		{
			name:    "no streams",
			data:    `{"streams":[]}`,
			wantErr: true,
		},
		{
			name:    "zero dimensions",
			data:    `{"streams":[{"width":0,"height":480,"nb_frames":"10","r_frame_rate":"240/1"}]}`,
			wantErr: true,
		},
		{
			name:    "neither nb_frames nor duration",
			data:    `{"streams":[{"width":640,"height":480,"nb_frames":"N/A","r_frame_rate":"240/1","duration":"N/A"}]}`,
			wantErr: true,
		},
		{
			name:    "zero denominator rate",
			data:    `{"streams":[{"width":640,"height":480,"nb_frames":"10","r_frame_rate":"240/0"}]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			data:    `bogus`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseProbe([]byte(tc.data))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProbe: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

type fakeExecutor struct {
	runErr    error
	output    []byte
	outputErr error
	runCalls  [][]string
	onRun     func(binary string, args []string)
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, _ func(string)) error {
	f.runCalls = append(f.runCalls, append([]string{binary}, args...))
	if f.onRun != nil {
		f.onRun(binary, args)
	}
	return f.runErr
}

func (f *fakeExecutor) Output(context.Context, string, []string) ([]byte, error) {
	return f.output, f.outputErr
}

func TestProbeWrapsUnreadableSource(t *testing.T) {
	exec := &fakeExecutor{outputErr: errors.New("exit status 1")}
	client, err := New("ffmpeg", "ffprobe", WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Probe(context.Background(), "missing.avi")
	if !errors.Is(err, services.ErrSourceUnreadable) {
		t.Fatalf("expected ErrSourceUnreadable, got %v", err)
	}
}

func TestPartialPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"out/session-left.avi", "out/session-left.partial.avi"},
		{"plain", "plain.partial"},
	}
	for _, tc := range tests {
		if got := partialPath(tc.in); got != tc.want {
			t.Errorf("partialPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
