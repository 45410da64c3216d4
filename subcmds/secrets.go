// Copyright (c) 2025 BVK Chaitanya

package subcmds

import (
	"encoding/json"
	"os"

	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/gobs"
	"github.com/LoveBloodAndDiamonds/cex-copytrader-client/telegram"
)

// Secrets holds the optional startup credentials read from the secrets file.
// The follower keys seed the credential store on first start; telegram keys
// enable operator alerts.
type Secrets struct {
	Follower *gobs.Credentials `json:"follower"`
	Telegram *telegram.Secrets `json:"telegram"`
}

func SecretsFromFile(fpath string) (*Secrets, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	s := new(Secrets)
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Secrets) Check() error {
	if s.Telegram != nil {
		if err := s.Telegram.Check(); err != nil {
			return err
		}
	}
	return nil
}
