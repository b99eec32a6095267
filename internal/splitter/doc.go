// Package splitter cuts the two-camera source recording into left and right
// channel videos in one sequential pass, measuring per-frame eye areas on
// each half as it goes. The pass is the only place raw frames are touched;
// everything downstream works from the channel artifacts it produces.
package splitter
