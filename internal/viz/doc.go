// Package viz draws simulation snapshots onto a pixel surface.
//
// A [Visualization] owns one [surface.Surface] whose size matches its
// [grid.Spec]. Every [Visualization.Render] clears the surface and draws the
// snapshot in a fixed order:
//
//  1. cell layers, in the order the snapshot lists them
//  2. grid lines on interior cell boundaries
//  3. the border overlay
//  4. spheres
//  5. sphere labels
//
// Later passes paint over earlier ones. Malformed data (unknown colours,
// out-of-range cells, non-finite positions) is skipped per element; the rest
// of the frame is still drawn and the skipped elements are returned in
// [FrameStats].
package viz
