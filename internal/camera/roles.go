package camera

import "strings"

// Entity roles within a device group.
const (
	RoleSDStream   = "sd_stream"
	RoleHDStream   = "hd_stream"
	RoleSDSnapshot = "sd_snapshot"
	RoleHDSnapshot = "hd_snapshot"
)

type roleRule struct {
	suffix string
	role   string
}

// Platform-specific suffix rules, most specific first.
var platformRules = map[string][]roleRule{
	"reolink": {
		// Dual-lens telephoto snapshots
		{"_autotrack_snapshots_sub_lens_0", RoleSDSnapshot},
		{"_autotrack_snapshots_sub_lens_1", RoleSDSnapshot},
		{"_autotrack_snapshots_main_lens_0", RoleHDSnapshot},
		{"_autotrack_snapshots_main_lens_1", RoleHDSnapshot},
		// Dual-lens snapshots
		{"_snapshots_sub_lens_0", RoleSDSnapshot},
		{"_snapshots_sub_lens_1", RoleSDSnapshot},
		{"_snapshots_main_lens_0", RoleHDSnapshot},
		{"_snapshots_main_lens_1", RoleHDSnapshot},
		// Telephoto snapshots and streams
		{"_autotrack_snapshots_sub", RoleSDSnapshot},
		{"_autotrack_snapshots_main", RoleHDSnapshot},
		{"_autotrack_snapshots_fluent", RoleSDSnapshot},
		{"_autotrack_snapshots_clear", RoleHDSnapshot},
		{"_autotrack_sub", RoleSDStream},
		{"_autotrack_main", RoleHDStream},
		{"_autotrack_fluent", RoleSDStream},
		{"_autotrack_clear", RoleHDStream},
		// Dual-lens streams
		{"_sub_lens_0", RoleSDStream},
		{"_sub_lens_1", RoleSDStream},
		{"_main_lens_0", RoleHDStream},
		{"_main_lens_1", RoleHDStream},
		{"_ext_lens_0", RoleSDStream},
		{"_ext_lens_1", RoleSDStream},
		// Snapshots (current + legacy)
		{"_snapshots_sub", RoleSDSnapshot},
		{"_snapshots_main", RoleHDSnapshot},
		{"_snapshots_fluent", RoleSDSnapshot},
		{"_snapshots_clear", RoleHDSnapshot},
		// Balanced stream counts as SD
		{"_ext", RoleSDStream},
		// Legacy streams
		{"_fluent", RoleSDStream},
		{"_clear", RoleHDStream},
		// Current naming
		{"_sub", RoleSDStream},
		{"_main", RoleHDStream},
	},
	"unifiprotect": {
		{"_low_resolution_channel", RoleSDStream},
		{"_medium_resolution_channel", RoleSDStream},
		{"_high_resolution_channel", RoleHDStream},
	},
	"tapo": {
		{"_sd", RoleSDStream},
		{"_hd", RoleHDStream},
	},
}

// platformOrder fixes the scan order when no platform hint is available.
var platformOrder = []string{"reolink", "unifiprotect", "tapo"}

// Generic fallback suffixes, platform-agnostic.
var genericRules = []roleRule{
	{"_sub", RoleSDStream},
	{"_main", RoleHDStream},
	{"_fluent", RoleSDStream},
	{"_clear", RoleHDStream},
	{"_low", RoleSDStream},
	{"_high", RoleHDStream},
	{"_sd", RoleSDStream},
	{"_hd", RoleHDStream},
	{"_ext", RoleSDStream},
	{"_low_resolution_channel", RoleSDStream},
	{"_medium_resolution_channel", RoleSDStream},
	{"_high_resolution_channel", RoleHDStream},
}

// ClassifyRole classifies a camera entity's role within its device group.
// It returns the role and the matched suffix, or empty strings when no
// suffix matches (single-entity device or unrecognized naming). When the
// integration platform is unknown, every platform's rules are tried in a
// fixed order before the generic fallback.
func ClassifyRole(entityID, platform string) (role, suffix string) {
	objID := strings.TrimPrefix(entityID, "camera.")

	if rules, ok := platformRules[platform]; ok {
		if r, s := matchRules(objID, rules); r != "" {
			return r, s
		}
	} else if platform == "" {
		for _, p := range platformOrder {
			if r, s := matchRules(objID, platformRules[p]); r != "" {
				return r, s
			}
		}
	}
	return matchRules(objID, genericRules)
}

func matchRules(objID string, rules []roleRule) (role, suffix string) {
	for _, rule := range rules {
		if strings.HasSuffix(objID, rule.suffix) {
			return rule.role, rule.suffix
		}
	}
	return "", ""
}
