package config_test

import (
	"fmt"
	"os"

	"github.com/levinOo/nginx-log-exporter/internal/config"
)

// Example_defaultConfig демонстрирует загрузку конфигурации со значениями по умолчанию.
func Example_defaultConfig() {
	cfg, err := config.Load([]string{"/var/log/nginx/access.log"})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Printf("Access log: %s\n", cfg.AccessLog)
	fmt.Printf("Namespace: %s\n", cfg.Namespace)
	fmt.Printf("Address: %s\n", cfg.Addr)
	fmt.Printf("Start: %s\n", cfg.StartPosition)
	fmt.Printf("Metrics: %+v\n", cfg.EnabledMetrics())
	// Output:
	// Access log: /var/log/nginx/access.log
	// Namespace: nginx
	// Address: 0.0.0.0:5000
	// Start: end
	// Metrics: {ResponseStatus:true ResponseCode:true ResponseSize:true}
}

// Example_environmentVariables демонстрирует приоритет переменных окружения над флагами.
func Example_environmentVariables() {
	os.Setenv("ADDRESS", "127.0.0.1:9113")
	os.Setenv("METRIC_RESPONSE_SIZE", "false")
	defer os.Unsetenv("ADDRESS")
	defer os.Unsetenv("METRIC_RESPONSE_SIZE")

	cfg, err := config.Load([]string{"-a", "0.0.0.0:8080", "-n", "edge", "/var/log/nginx/access.log"})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Printf("Address: %s\n", cfg.Addr)
	fmt.Printf("Namespace: %s\n", cfg.Namespace)
	fmt.Printf("Response size: %t\n", cfg.ResponseSize)
	// Output:
	// Address: 127.0.0.1:9113
	// Namespace: edge
	// Response size: false
}

// Example_missingAccessLog демонстрирует ошибку при отсутствии пути к логу.
func Example_missingAccessLog() {
	_, err := config.Load(nil)
	fmt.Println(err)
	// Output:
	// access log path is required
}
