package camera

import (
	"reflect"
	"testing"
)

func TestBuildDevicesGroupsByStem(t *testing.T) {
	devices := BuildDevices([]EntityInfo{
		{EntityID: "camera.front_door_main", FriendlyName: "Front Door", Platform: "reolink"},
		{EntityID: "camera.front_door_sub", Platform: "reolink"},
		{EntityID: "camera.front_door_snapshots_main", Platform: "reolink"},
		{EntityID: "camera.backyard_hd", Platform: "tapo"},
		{EntityID: "camera.backyard_sd", Platform: "tapo"},
		{EntityID: "sensor.not_a_camera"},
	})
	if len(devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(devices))
	}

	// Sorted by name: "Backyard" then "Front Door".
	back := devices[0]
	if back.DeviceID != "backyard" || back.Name != "Backyard" {
		t.Fatalf("backyard device = %+v", back)
	}
	if back.Entities[RoleHDStream] != "camera.backyard_hd" || back.Entities[RoleSDStream] != "camera.backyard_sd" {
		t.Fatalf("backyard roles = %v", back.Entities)
	}

	front := devices[1]
	if front.Name != "Front Door" {
		t.Fatalf("name = %q", front.Name)
	}
	want := map[string]string{
		RoleHDStream:   "camera.front_door_main",
		RoleSDStream:   "camera.front_door_sub",
		RoleHDSnapshot: "camera.front_door_snapshots_main",
	}
	if !reflect.DeepEqual(front.Entities, want) {
		t.Fatalf("front roles = %v, want %v", front.Entities, want)
	}
	wantAll := []string{"camera.front_door_main", "camera.front_door_snapshots_main", "camera.front_door_sub"}
	if !reflect.DeepEqual(front.AllEntityIDs, wantAll) {
		t.Fatalf("all entities = %v", front.AllEntityIDs)
	}
}

func TestBuildDevicesUnrecognizedGetsSDStream(t *testing.T) {
	devices := BuildDevices([]EntityInfo{
		{EntityID: "camera.doorbell"},
	})
	if len(devices) != 1 {
		t.Fatalf("devices = %d", len(devices))
	}
	d := devices[0]
	if d.Entities[RoleSDStream] != "camera.doorbell" {
		t.Fatalf("roles = %v, want sd_stream fallback", d.Entities)
	}
	if d.Name != "Doorbell" {
		t.Fatalf("name = %q, want title-cased stem", d.Name)
	}
}

func TestBuildDevicesFirstMatchWinsRole(t *testing.T) {
	devices := BuildDevices([]EntityInfo{
		{EntityID: "camera.yard_main_lens_0", Platform: "reolink"},
		{EntityID: "camera.yard_main_lens_1", Platform: "reolink"},
	})
	if len(devices) != 1 {
		t.Fatalf("devices = %d, want 1", len(devices))
	}
	if got := devices[0].Entities[RoleHDStream]; got != "camera.yard_main_lens_0" {
		t.Fatalf("hd_stream = %q, want lens 0", got)
	}
}
