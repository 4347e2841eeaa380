package control

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/lookout-monitor/internal/activity"
	"github.com/oshokin/lookout-monitor/internal/domain/lookout"
)

const (
	fieldRequestedBy = "requested_by"
	fieldHostname    = "hostname"
	fieldUsername    = "username"
	fieldMode        = "mode"
)

// RecenterRequest builds the Recenter request message.
func RecenterRequest(actor *lookout.Actor) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldRequestedBy: actorValue(actor),
	})
}

// ActivityRequest builds the SetActivity request message.
func ActivityRequest(actor *lookout.Actor, mode activity.Mode) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldRequestedBy: actorValue(actor),
		fieldMode:        string(mode),
	})
}

func actorValue(actor *lookout.Actor) map[string]any {
	if actor == nil {
		return nil
	}

	return map[string]any{
		fieldHostname: actor.Hostname,
		fieldUsername: actor.Username,
	}
}

// actorFromStruct reads requested_by; it reports false when absent or empty.
func actorFromStruct(req *structpb.Struct) (*lookout.Actor, bool) {
	fields := req.GetFields()[fieldRequestedBy].GetStructValue().GetFields()

	actor := &lookout.Actor{
		Hostname: fields[fieldHostname].GetStringValue(),
		Username: fields[fieldUsername].GetStringValue(),
	}

	if actor.Hostname == "" && actor.Username == "" {
		return nil, false
	}

	return actor, true
}

// StatusToStruct encodes an engine snapshot.
func StatusToStruct(st lookout.Status) (*structpb.Struct, error) {
	alarms := make([]any, 0, len(st.Alarms))

	for _, a := range st.Alarms {
		alarms = append(alarms, map[string]any{
			"index":           a.Index,
			"name":            a.Name,
			"enabled":         a.Enabled,
			"widest":          a.Widest,
			"idle_ms":         a.IdleMs,
			"seen_left":       a.SeenLeft,
			"seen_right":      a.SeenRight,
			"seen_up":         a.SeenUp,
			"seen_down":       a.SeenDown,
			"warning_active":  a.WarningActive,
			"silenced_for_ms": a.SilencedForMs,
			"alert_playing":   a.AlertPlaying,
			"applied_volume":  a.AppliedVolume,
		})
	}

	out, err := structpb.NewStruct(map[string]any{
		"engine_ms":      st.EngineMs,
		"active":         st.Active,
		"center_yaw":     st.CenterYaw,
		"center_pitch":   st.CenterPitch,
		"relative_yaw":   st.RelativeYaw,
		"relative_pitch": st.RelativePitch,
		"baseline_mode":  st.BaselineMode,
		"activity_mode":  st.ActivityMode,
		"alarms":         alarms,
	})
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}

	return out, nil
}

// StatusFromStruct decodes a snapshot produced by StatusToStruct.
func StatusFromStruct(in *structpb.Struct) lookout.Status {
	f := in.GetFields()

	st := lookout.Status{
		EngineMs:      int64(f["engine_ms"].GetNumberValue()),
		Active:        f["active"].GetBoolValue(),
		CenterYaw:     f["center_yaw"].GetNumberValue(),
		CenterPitch:   f["center_pitch"].GetNumberValue(),
		RelativeYaw:   f["relative_yaw"].GetNumberValue(),
		RelativePitch: f["relative_pitch"].GetNumberValue(),
		BaselineMode:  f["baseline_mode"].GetStringValue(),
		ActivityMode:  f["activity_mode"].GetStringValue(),
	}

	for _, v := range f["alarms"].GetListValue().GetValues() {
		a := v.GetStructValue().GetFields()

		st.Alarms = append(st.Alarms, lookout.AlarmStatus{
			Index:         int(a["index"].GetNumberValue()),
			Name:          a["name"].GetStringValue(),
			Enabled:       a["enabled"].GetBoolValue(),
			Widest:        a["widest"].GetBoolValue(),
			IdleMs:        int64(a["idle_ms"].GetNumberValue()),
			SeenLeft:      a["seen_left"].GetBoolValue(),
			SeenRight:     a["seen_right"].GetBoolValue(),
			SeenUp:        a["seen_up"].GetBoolValue(),
			SeenDown:      a["seen_down"].GetBoolValue(),
			WarningActive: a["warning_active"].GetBoolValue(),
			SilencedForMs: int64(a["silenced_for_ms"].GetNumberValue()),
			AlertPlaying:  a["alert_playing"].GetBoolValue(),
			AppliedVolume: int(a["applied_volume"].GetNumberValue()),
		})
	}

	return st
}
