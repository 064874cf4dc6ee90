package inventory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/saltinventory/minion-inventory/pkg/model"
)

// LoopbackInterface is never recorded as a minion interface
const LoopbackInterface = "lo"

// Properties is the attribute snapshot a minion reports with its audit.
// When the minion reports no change only ServerID is expected to be set.
type Properties struct {
	ServerID        *int64 `json:"server_id"`
	ID              string `json:"id"`
	Host            string `json:"host"`
	FQDN            string `json:"fqdn"`
	OS              string `json:"os"`
	OSRelease       string `json:"osrelease"`
	Kernel          string `json:"kernel"`
	KernelRelease   string `json:"kernelrelease"`
	CPUModel        string `json:"cpu_model"`
	BIOSReleaseDate string `json:"biosreleasedate"`
	BIOSVersion     string `json:"biosversion"`
	MemTotal        int64  `json:"mem_total"`
	NumCPUs         int    `json:"num_cpus"`
	NumGPUs         int    `json:"num_gpus"`
	SaltVersion     string `json:"saltversion"`
	SELinuxEnabled  bool   `json:"selinux_enabled"`
	SELinuxEnforced string `json:"selinux_enforced"`

	GPUs             []GPU                  `json:"gpus"`
	HWAddrInterfaces map[string]string      `json:"hwaddr_interfaces"`
	IP4Interfaces    map[string][]string    `json:"ip4_interfaces"`
	Pkgs             map[string]VersionList `json:"pkgs"`
}

// GPU is one entry of the reported GPU list
type GPU struct {
	Model  string `json:"model"`
	Vendor string `json:"vendor"`
}

// VersionEntry is one reported version of a package. Minions report either a
// bare version string or a record carrying a "version" key; any other shape
// decodes to an entry with Valid unset so that it can be logged and skipped.
type VersionEntry struct {
	Version string
	Valid   bool
	Raw     json.RawMessage
}

func (e *VersionEntry) UnmarshalJSON(data []byte) error {
	e.Raw = append(json.RawMessage(nil), data...)
	e.Version, e.Valid = "", false

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Version, e.Valid = s, true
		return nil
	}

	var record struct {
		Version *string `json:"version"`
	}
	if err := json.Unmarshal(data, &record); err == nil && record.Version != nil {
		e.Version, e.Valid = *record.Version, true
	}
	return nil
}

func (e VersionEntry) MarshalJSON() ([]byte, error) {
	if !e.Valid && len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(e.Version)
}

// VersionList is the list of versions reported for one package. A single
// entry that is not wrapped in a list is accepted as a list of one.
type VersionList []VersionEntry

func (l *VersionList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*l = nil
		return nil
	case len(trimmed) > 0 && trimmed[0] == '[':
		var entries []VersionEntry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return err
		}
		*l = entries
		return nil
	}

	var entry VersionEntry
	if err := json.Unmarshal(trimmed, &entry); err != nil {
		return err
	}
	*l = VersionList{entry}
	return nil
}

// Versions builds a VersionList from plain version strings
func Versions(versions ...string) VersionList {
	l := make(VersionList, 0, len(versions))
	for _, v := range versions {
		l = append(l, VersionEntry{Version: v, Valid: true})
	}
	return l
}

// ServerIDOf returns a pointer suitable for Properties.ServerID
func ServerIDOf(id int64) *int64 {
	return &id
}

// timestampLayouts are tried in order; layouts without a zone are read as UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the timestamp that accompanies audit and presence
// reports. Salt event stamps ("2024-01-02T03:04:05.123456") carry no zone
// and are taken as UTC.
func ParseTimestamp(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrMalformedInput)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised timestamp %q", ErrMalformedInput, ts)
}

// validate checks the attributes needed to write a full minion row
func (p *Properties) validate() error {
	var missing []string
	if p.ServerID == nil {
		missing = append(missing, "server_id")
	}
	if p.ID == "" {
		missing = append(missing, "id")
	}
	if p.Host == "" {
		missing = append(missing, "host")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedInput, strings.Join(missing, ", "))
	}
	if p.MemTotal < 0 || p.NumCPUs < 0 || p.NumGPUs < 0 {
		return fmt.Errorf("%w: negative hardware counts", ErrMalformedInput)
	}
	return nil
}

func (p *Properties) toMinion() *model.Minion {
	return &model.Minion{
		ServerID:        *p.ServerID,
		MinionID:        p.ID,
		Host:            p.Host,
		FQDN:            p.FQDN,
		OS:              p.OS,
		OSRelease:       p.OSRelease,
		Kernel:          p.Kernel,
		KernelRelease:   p.KernelRelease,
		CPUModel:        p.CPUModel,
		BIOSReleaseDate: p.BIOSReleaseDate,
		BIOSVersion:     p.BIOSVersion,
		MemTotal:        p.MemTotal,
		NumCPUs:         p.NumCPUs,
		NumGPUs:         p.NumGPUs,
		SaltVersion:     p.SaltVersion,
		SELinuxEnabled:  p.SELinuxEnabled,
		SELinuxEnforced: p.SELinuxEnforced,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
