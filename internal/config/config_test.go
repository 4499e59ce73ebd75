package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefault(t *testing.T) {
	// WHAT: defaults point at the AeroInfo page with its selectors and bounded waits.
	// WHY: running without a config file must work.
	c := Default()
	if c.Source.URL != "https://brin.iaa.gov.il/aeroinfo/AeroInfo.aspx?msgType=Notam" {
		t.Errorf("url: %q", c.Source.URL)
	}
	if c.Source.Selectors.Root != "#DataList1" || c.Source.Selectors.Field != ".more_MsgText" {
		t.Errorf("selectors: %+v", c.Source.Selectors)
	}
	if c.Source.ExpandTimeout != 10*time.Second || c.Source.NavigateTimeout != 30*time.Second {
		t.Errorf("timeouts: %v %v", c.Source.ExpandTimeout, c.Source.NavigateTimeout)
	}
	if c.Source.Delay != 250*time.Millisecond {
		t.Errorf("delay: %v", c.Source.Delay)
	}
	if !c.Browser.Headless() || c.Browser.ViewportWidth != 1280 {
		t.Errorf("browser: %+v", c.Browser)
	}
	if c.Store.MaxBackups != 5 || c.RunLog.Path != "" {
		t.Errorf("store/runlog: %+v %+v", c.Store, c.RunLog)
	}
}

func TestLoadFile(t *testing.T) {
	// WHAT: file values override defaults; durations parse from strings.
	// WHY: deployments tune timeouts and paths in YAML.
	dir := t.TempDir()
	p := writeFile(t, dir, "notamwatch.yaml", `
source:
  mode: full
  expand_timeout: 3s
  delay: 500ms
  selectors:
    root: "#List"
browser:
  mode: headful
  resource_blocking: [images, fonts]
store:
  path: /var/lib/notamwatch/notams.json
runlog:
  path: /var/lib/notamwatch/runs.db
`)
	c, err := LoadFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Source.Mode != "full" || c.Source.ExpandTimeout != 3*time.Second || c.Source.Delay != 500*time.Millisecond {
		t.Errorf("source: %+v", c.Source)
	}
	if c.Source.Selectors.Root != "#List" || c.Source.Selectors.MainPrefix != "divMainInfo_" {
		t.Errorf("selectors: %+v", c.Source.Selectors)
	}
	if c.Browser.Headless() || len(c.Browser.ResourceBlocking) != 2 {
		t.Errorf("browser: %+v", c.Browser)
	}
	if c.Store.Path != "/var/lib/notamwatch/notams.json" || c.Store.BackupDir != "data/backups" {
		t.Errorf("store: %+v", c.Store)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	// WHAT: bad YAML, an unknown mode and a missing file are errors.
	// WHY: a typo must stop startup, not fall back silently.
	dir := t.TempDir()
	for name, body := range map[string]string{
		"syntax.yaml": "source: [",
		"mode.yaml":   "source:\n  mode: sideways\n",
	} {
		if _, err := LoadFile(writeFile(t, dir, name, body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file: expected error")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	// WHAT: .env values override the file and process variables override .env.
	// WHY: containers set paths through the environment.
	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "NOTAMWATCH_STORE_PATH=/env/notams.json\nNOTAMWATCH_SERVER_ADDR=:9000\n")
	t.Setenv(EnvServerAddr, ":7000")

	c, err := Load("", env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Store.Path != "/env/notams.json" {
		t.Errorf("store path: %q", c.Store.Path)
	}
	if c.Server.Addr != ":7000" {
		t.Errorf("server addr: %q", c.Server.Addr)
	}

	if _, err := Load("", filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("missing env file: %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	// WHAT: an empty runlog override disables the ledger.
	// WHY: operators turn the ledger off without editing the file.
	c := Default()
	c.RunLog.Path = "runs.db"
	c.ApplyEnv(func(k string) (string, bool) {
		if k == EnvRunLogPath {
			return "", true
		}
		return "", false
	})
	if c.RunLog.Path != "" {
		t.Errorf("runlog path: %q", c.RunLog.Path)
	}
}
