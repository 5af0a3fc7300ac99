package mcversion

// staticCeiling is the first schema version not covered by the compiled-in table.
const staticCeiling = 922

// Releases from 15w32a, where data versions were introduced, through 1.11.1. 15w33a and 15w33b share a
// schema version; the later one wins the reverse lookup.
var staticSchemaVersions = []struct {
	release string
	schema  int
}{
	{"15w32a", 100},
	{"15w32b", 103},
	{"15w32c", 104},
	{"15w33a", 111},
	{"15w33b", 111},
	{"15w33c", 112},
	{"15w34a", 114},
	{"15w34b", 115},
	{"15w34c", 116},
	{"15w34d", 117},
	{"15w35a", 118},
	{"15w35b", 119},
	{"15w35c", 120},
	{"15w35d", 121},
	{"15w35e", 122},
	{"15w36a", 123},
	{"15w36b", 124},
	{"15w36c", 125},
	{"15w36d", 126},
	{"15w37a", 127},
	{"15w38a", 128},
	{"15w38b", 129},
	{"15w39a", 130},
	{"15w39b", 131},
	{"15w39c", 132},
	{"15w40a", 133},
	{"15w40b", 134},
	{"15w41a", 136},
	{"15w41b", 137},
	{"15w42a", 138},
	{"15w43a", 139},
	{"15w43b", 140},
	{"15w43c", 141},
	{"15w44a", 142},
	{"15w44b", 143},
	{"15w45a", 145},
	{"15w46a", 146},
	{"15w47a", 148},
	{"15w47b", 149},
	{"15w47c", 150},
	{"15w49a", 151},
	{"15w49b", 152},
	{"15w50a", 153},
	{"15w51a", 154},
	{"15w51b", 155},
	{"16w02a", 156},
	{"16w03a", 157},
	{"16w04a", 158},
	{"16w05a", 159},
	{"16w05b", 160},
	{"16w06a", 161},
	{"16w07a", 162},
	{"16w07b", 163},
	{"1.9-pre1", 164},
	{"1.9-pre2", 165},
	{"1.9-pre3", 167},
	{"1.9-pre4", 168},
	{"1.9", 169},
	{"1.9.1-pre1", 170},
	{"1.9.1-pre2", 171},
	{"1.9.1-pre3", 172},
	{"1.9.1", 175},
	{"1.9.2", 176},
	{"16w14a", 177},
	{"16w15a", 178},
	{"16w15b", 179},
	{"1.9.3-pre1", 180},
	{"1.9.3-pre2", 181},
	{"1.9.3-pre3", 182},
	{"1.9.3", 183},
	{"1.9.4", 184},
	{"16w20a", 501},
	{"16w21a", 503},
	{"16w21b", 504},
	{"1.10-pre1", 506},
	{"1.10-pre2", 507},
	{"1.10", 510},
	{"1.10.1", 511},
	{"1.10.2", 512},
	{"16w32a", 800},
	{"16w32b", 801},
	{"16w33a", 802},
	{"16w35a", 803},
	{"16w36a", 805},
	{"16w38a", 807},
	{"16w39a", 809},
	{"16w39b", 811},
	{"16w39c", 812},
	{"16w40a", 813},
	{"16w41a", 814},
	{"16w42a", 815},
	{"16w43a", 816},
	{"16w44a", 817},
	{"1.11-pre1", 818},
	{"1.11", 819},
	{"16w50a", 920},
	{"1.11.1", 921},
}

var (
	staticByRelease = make(map[string]int, len(staticSchemaVersions))
	staticBySchema  = make(map[int]string, len(staticSchemaVersions))
)

func init() {
	for _, v := range staticSchemaVersions {
		staticByRelease[v.release] = v.schema
		staticBySchema[v.schema] = v.release
	}
}
