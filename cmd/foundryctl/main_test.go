package main

import (
	"testing"

	"github.com/foundrylabs/foundryctl/internal/session"
)

func TestHeadlessOutcome(t *testing.T) {
	tests := []struct {
		name      string
		notice    session.Notice
		terminal  bool
		wantAlert string
	}{
		{
			name:     "log entry keeps waiting",
			notice:   session.Notice{Kind: session.NoticeLog, Status: session.StatusRunning},
			terminal: false,
		},
		{
			name:     "intermediate status keeps waiting",
			notice:   session.Notice{Kind: session.NoticeStatus, Status: session.StatusDisconnected},
			terminal: false,
		},
		{
			name:     "completed ends the run",
			notice:   session.Notice{Kind: session.NoticeStatus, Status: session.StatusCompleted},
			terminal: true,
		},
		{
			name:     "errored ends the run",
			notice:   session.Notice{Kind: session.NoticeStatus, Status: session.StatusErrored},
			terminal: true,
		},
		{
			name: "dropped-send alert ends the run",
			notice: session.Notice{
				Kind:   session.NoticeAlert,
				Status: session.StatusDisconnected,
				Entry:  session.LogEntry{Text: "ALERT: Not connected to server. Please wait.", Alert: true},
			},
			terminal:  true,
			wantAlert: "ALERT: Not connected to server. Please wait.",
		},
		{
			name: "reconnect breaker alert ends the run",
			notice: session.Notice{
				Kind:   session.NoticeAlert,
				Status: session.StatusDisconnected,
				Entry:  session.LogEntry{Text: "ERROR: Giving up after 3 reconnect attempts.", Alert: true},
			},
			terminal:  true,
			wantAlert: "ERROR: Giving up after 3 reconnect attempts.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, terminal := headlessOutcome(tt.notice)
			if terminal != tt.terminal {
				t.Fatalf("terminal = %v, want %v", terminal, tt.terminal)
			}
			if res.alert != tt.wantAlert {
				t.Errorf("alert = %q, want %q", res.alert, tt.wantAlert)
			}
			if terminal && tt.wantAlert == "" && res.status != tt.notice.Status {
				t.Errorf("status = %s, want %s", res.status, tt.notice.Status)
			}
		})
	}
}
