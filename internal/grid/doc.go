// Package grid defines the linear mapping between a uniform rectangular grid
// and a fixed-size pixel canvas.
//
// A [Spec] is built once from the canvas size and the cell counts:
//
//   - cell size: CellWidth = PixelWidth/Cols, CellHeight = PixelHeight/Rows
//   - forward: [Spec.CellRect], [Spec.CellCenter], [Spec.WorldToPixel]
//   - inverse: [Spec.PixelToCell] (clamped), [Spec.PixelToWorld]
//
// World coordinates share the grid's scale, so the world spans
// [0,Cols] x [0,Rows] independently of cell quantization.
//
// # Example
//
//	spec, _ := grid.NewSpec(500, 500, 10, 10)
//	spec.WorldToPixel(2.5, 3.5) // 125, 175
//	spec.PixelToCell(130, 180)  // (2,3)
//	spec.PixelToCell(500, 500)  // (9,9)
package grid
