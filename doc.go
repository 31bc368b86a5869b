// Package scenetwin overlays custom interactive content onto a digital-twin
// scene that is described and rendered elsewhere. The scene description names
// placeholder nodes (tags); scenetwin replaces each configured tag with a
// wrapper, an animated model, a clickable button or a live text panel, and then
// keeps the state of every wrapper in sync with live telemetry.
//
// The package is driven by a Reconciler. We call its Exec method on every tick
// of a scheduled task until the external scene is ready, at which point the
// reconciler takes the scene over: it prepares the environment (lights and
// renderer settings), asks an Overrider which tags to replace, locates each tag
// with SearchTag, and registers the wrappers the factories produce. From then
// on, ExecData pulls the values every wrapper's anchor is bound to, evaluates
// the anchor's rule-based map and drives the wrapper's state.
//
// Wrappers follow a guarded state protocol: redundant transitions are ignored,
// transitions before the wrapper finished loading are ignored, and the StateInit
// sentinel is always accepted without notifying anyone.
//
// Nothing in this package fails loudly. A scene that is not ready, a tag that is
// missing, or values that match no rule all resolve by waiting for the next tick.
// Surfacing persistent problems is left to the application, which may inspect
// the Registry and the telemetry this package records.
//
// The rendering engine is reached through the interfaces of the scene package;
// scene/memscene implements them headlessly.
package scenetwin
