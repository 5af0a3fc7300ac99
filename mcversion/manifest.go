package mcversion

import "time"

const (
	DefaultManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"
	DefaultReportURL   = "https://pokechu22.github.io/Burger/%s.json"

	manifestKey = "version_manifest.json"
)

// searchCutoff is the release time of 1.11.1; everything released earlier is in the static table.
var searchCutoff = time.Date(2016, time.December, 20, 23, 59, 59, 0, time.UTC)

// Manifest is the launcher's list of every published version.
type Manifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []ManifestVersion `json:"versions"`
}

type ManifestVersion struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	URL         string    `json:"url"`
	ReleaseTime time.Time `json:"releaseTime"`
}

// Stable reports whether the entry is a full release rather than a snapshot or an old alpha/beta.
func (v ManifestVersion) Stable() bool {
	return v.Type == "release"
}

// Find returns the manifest entry for a release id.
func (m *Manifest) Find(id string) (ManifestVersion, bool) {
	for _, v := range m.Versions {
		if v.ID == id {
			return v, true
		}
	}
	return ManifestVersion{}, false
}

// VersionDetails is the per-version document linked from the manifest.
type VersionDetails struct {
	Downloads struct {
		Client Artifact `json:"client"`
	} `json:"downloads"`
}

type Artifact struct {
	SHA1 string `json:"sha1"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// schemaReport is the third-party per-release report; only its data version is used.
type schemaReport struct {
	Version struct {
		Data int `json:"data"`
	} `json:"version"`
}
