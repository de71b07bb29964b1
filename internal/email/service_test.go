package email

import (
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderPendingApprovalTemplate(t *testing.T) {
	data := PendingApprovalData{
		AppName:    "PSG Docs",
		Title:      "Política de Férias",
		FileName:   "PSG-3-FER-01.docx",
		FolderName: "Recursos Humanos",
	}

	html, err := renderTemplate(pendingApprovalEmailTemplate, data)
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	if !strings.Contains(html, "PSG Docs") {
		t.Error("template should contain app name")
	}
	if !strings.Contains(html, "Política de Férias") {
		t.Error("template should contain document title")
	}
	if !strings.Contains(html, "PSG-3-FER-01.docx") {
		t.Error("template should contain file name")
	}
	if !strings.Contains(html, "Recursos Humanos") {
		t.Error("template should contain folder name")
	}
	if !strings.Contains(html, "Pendente") {
		t.Error("template should mention pending state")
	}
}

func TestSendEmailRequiresConfiguration(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.SendEmail([]string{"to@example.com"}, "assunto", "corpo"); err == nil {
		t.Error("SendEmail should fail when not configured")
	}
	if err := svc.SendHTMLEmail([]string{"to@example.com"}, "assunto", "<p>corpo</p>"); err == nil {
		t.Error("SendHTMLEmail should fail when not configured")
	}
}
