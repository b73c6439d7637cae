// Package tf maintains a time-varying forest of rigid-body coordinate
// frames and answers "what is the transform from frame A to frame B at
// time t" queries.
//
// Publishers call SetTransform to record a new parent->child sample.
// Consumers call LookupTransform, CanTransform or GetLatestCommonTime to
// query the composed transform between any two frames in the forest, with
// interpolation and extrapolation handled per frame by a bounded TimeCache.
//
// The rigid-transform algebra itself (Transform) is a thin wrapper over
// gonum's r3.Vec and quat.Number; everything about graph traversal,
// temporal lookup and concurrency discipline is specific to this package.
package tf
