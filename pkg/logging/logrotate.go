package logging

import "fmt"

// GenerateLogrotateConfig creates a logrotate configuration for a component
func GenerateLogrotateConfig(component string) string {
	return fmt.Sprintf(`# Logrotate configuration for Grain %s
# Install: sudo cp this file to /etc/logrotate.d/grain-%s

%s/%s.log {
    daily
    rotate 14
    compress
    delaycompress
    missingok
    notifempty

    # zap keeps the file open; truncate in place instead of moving it
    copytruncate
}
`, component, component, DefaultLogDir, component)
}
