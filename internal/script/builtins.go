package script

// registerBuiltins wires every global function a script can call. Split
// across one file per concern (control flow, text, json, csv, kv, time,
// window, globals, misc) so each group stays readable on its own; this is
// the single place that assembles them for New().
func (h *Host) registerBuiltins() {
	h.registerControlBuiltins()
	h.registerTextBuiltins()
	h.registerJSONBuiltins()
	h.registerCSVBuiltins()
	h.registerKVBuiltins()
	h.registerTimeBuiltins()
	h.registerWindowBuiltins()
	h.registerGlobalsBuiltins()
	h.registerMiscBuiltins()
}
