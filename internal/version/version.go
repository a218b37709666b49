package version

// Build-time variables. Override via -ldflags.
var (
	Name      = "mimir-host"
	Version   = "dev"
	Commit    = "dev"
	BuildDate = "dev"
)

// Info describes build/version metadata.
type Info struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// Get returns version info, defaulting empty fields to "dev".
func Get() Info {
	return Info{
		Name:      defaultOr(Name, "mimir-host"),
		Version:   defaultOr(Version, "dev"),
		Commit:    defaultOr(Commit, "dev"),
		BuildDate: defaultOr(BuildDate, "dev"),
	}
}

// String renders the version line printed by the binaries.
func (i Info) String() string {
	return i.Name + " " + i.Version + " (" + i.Commit + ", " + i.BuildDate + ")"
}

func defaultOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
