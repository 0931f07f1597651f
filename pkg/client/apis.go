package client

import (
	"encoding/json"

	pkgerrors "github.com/pkg/errors"

	"github.com/charlie0129/gastimer/pkg/phase"
)

// PhaseConfigs mirrors the daemon's /config body.
type PhaseConfigs struct {
	Sample phase.Config `json:"sample"`
	Wash   phase.Config `json:"wash"`
}

func (c *Client) GetSnapshot() (*phase.Snapshot, error) {
	ret, err := c.Get("/snapshot")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get snapshot")
	}
	return parseSnapshot(ret)
}

func (c *Client) GetConfig() (*PhaseConfigs, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	var conf PhaseConfigs
	if err := json.Unmarshal([]byte(ret), &conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}
	return &conf, nil
}

func (c *Client) SetConfig(conf PhaseConfigs) error {
	payload, err := json.Marshal(conf)
	if err != nil {
		return err
	}
	_, err = c.Put("/config", string(payload))
	return err
}

func (c *Client) Start() (*phase.Snapshot, error) { return c.postSnapshot("/start") }

func (c *Client) ConfirmWash() (*phase.Snapshot, error) { return c.postSnapshot("/confirm-wash") }

func (c *Client) Reset() (*phase.Snapshot, error) { return c.postSnapshot("/reset") }

func (c *Client) Pause() (*phase.Snapshot, error) { return c.postSnapshot("/pause") }

func (c *Client) Resume() (*phase.Snapshot, error) { return c.postSnapshot("/resume") }

func (c *Client) postSnapshot(path string) (*phase.Snapshot, error) {
	ret, err := c.Post(path, "")
	if err != nil {
		return nil, err
	}
	return parseSnapshot(ret)
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get version")
	}
	var v string
	if err := json.Unmarshal([]byte(ret), &v); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return v, nil
}

func parseSnapshot(ret string) (*phase.Snapshot, error) {
	var snap phase.Snapshot
	if err := json.Unmarshal([]byte(ret), &snap); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal snapshot")
	}
	return &snap, nil
}
