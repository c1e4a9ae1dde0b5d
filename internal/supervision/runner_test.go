package supervision

import "testing"

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"sh", []string{"-c", "echo unit not found >&2; exit 5"}, "sh"},
		{"tail", []string{"-n", "1", "/var/log/syslog"}, "tail"},
		{"journalctl", []string{"-u", "fpp-monitor-agent.service", "-n", "1"}, "journalctl"},
		{"systemctl", []string{"is-active", "fpp-monitor-agent.service"}, "systemctl is-active"},
		{"sudo", []string{"-n", "systemctl", "restart", "fpp-monitor-agent.service"}, "sudo systemctl"},
		{"/usr/bin/sudo", []string{"-n"}, "/usr/bin/sudo"},
		{"uname", nil, "uname"},
	}
	for _, tt := range tests {
		if got := describe(tt.name, tt.args); got != tt.want {
			t.Errorf("describe(%q, %q) = %q, want %q", tt.name, tt.args, got, tt.want)
		}
	}
}
