// Package render provides the render surfaces the gallery appends to.
//
// A surface has two mount points: an append-only list of elements (photo
// wrappers and error messages) and a loader whose visibility is toggled.
// Surfaces never remove or reorder elements; readers page through them by
// index.
//
// # Surfaces
//
//   - MemorySurface keeps elements in process memory. It backs tests and
//     single-replica servers.
//   - RedisSurface keeps elements in a Redis list (RPUSH) and the loader in
//     a string key, both expiring with the session. Together with the session
//     registry in internal/session any replica can serve a session.
//
// # Basic Usage
//
//	surface := render.NewMemorySurface()
//	_ = surface.AppendElement(ctx, render.PhotoElement(link, src, label))
//	elements, _ := surface.Elements(ctx, 0)
//	html, _ := render.HTML(elements)
//
// # Metrics
//
//   - gallery_surface_elements_total{kind} - elements appended
//   - gallery_surface_errors_total{operation} - surface backend errors
package render
