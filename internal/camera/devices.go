package camera

import (
	"sort"
	"strings"
)

// EntityInfo is the slice of upstream state a device group is built from.
type EntityInfo struct {
	EntityID     string
	FriendlyName string
	Platform     string
}

// Device is one physical camera with its entities classified by role.
type Device struct {
	DeviceID     string            `json:"device_id"`
	Name         string            `json:"name"`
	Manufacturer string            `json:"manufacturer,omitempty"`
	Model        string            `json:"model,omitempty"`
	Entities     map[string]string `json:"entities"`
	AllEntityIDs []string          `json:"all_entity_ids"`
}

// BuildDevices groups camera entities into physical devices. Entities
// sharing an ID stem once their role suffix is stripped belong to the same
// device (a REST state list carries no registry device IDs, so the stem
// stands in for one). Within a group the first match wins each role;
// groups with no recognized suffix expose their first entity as sd_stream.
func BuildDevices(entities []EntityInfo) []Device {
	type member struct {
		info EntityInfo
		role string
	}
	groups := map[string][]member{}
	var order []string

	for _, info := range entities {
		if !strings.HasPrefix(info.EntityID, "camera.") {
			continue
		}
		role, suffix := ClassifyRole(info.EntityID, info.Platform)
		base := strings.TrimSuffix(strings.TrimPrefix(info.EntityID, "camera."), suffix)
		if _, seen := groups[base]; !seen {
			order = append(order, base)
		}
		groups[base] = append(groups[base], member{info: info, role: role})
	}

	devices := make([]Device, 0, len(groups))
	for _, base := range order {
		members := groups[base]
		roles := map[string]string{}
		var all []string
		for _, m := range members {
			all = append(all, m.info.EntityID)
			if m.role != "" {
				if _, taken := roles[m.role]; !taken {
					roles[m.role] = m.info.EntityID
				}
			}
		}
		if len(roles) == 0 {
			roles[RoleSDStream] = members[0].info.EntityID
		}

		name := ""
		for _, m := range members {
			if m.info.FriendlyName != "" {
				name = m.info.FriendlyName
				break
			}
		}
		if name == "" {
			name = titleWords(base)
		}

		sort.Strings(all)
		devices = append(devices, Device{
			DeviceID:     base,
			Name:         name,
			Entities:     roles,
			AllEntityIDs: all,
		})
	}

	sort.Slice(devices, func(i, j int) bool {
		return strings.ToLower(devices[i].Name) < strings.ToLower(devices[j].Name)
	})
	return devices
}

func titleWords(base string) string {
	words := strings.Split(base, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
