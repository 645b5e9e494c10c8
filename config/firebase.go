package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServiceAccount holds the fields of the Firebase service account key we log at startup.
type ServiceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ReadServiceAccount loads and sanity-checks the credentials file used for FCM.
func ReadServiceAccount(path string) (*ServiceAccount, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account %s: %w", path, err)
	}
	var sa ServiceAccount
	if err := json.Unmarshal(raw, &sa); err != nil {
		return nil, fmt.Errorf("parse service account %s: %w", path, err)
	}
	if sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("service account %s is missing client_email or private_key", path)
	}
	return &sa, nil
}
