// Package pagination drives the infinite scroll of a gallery session.
//
// A Controller decides when another page of photos is needed and a Pipeline
// fetches that page and appends it to a render surface.
//
// Example usage:
//
//	client, _ := unsplash.New(unsplash.DefaultConfig(accessKey))
//	pipeline := pagination.NewPipeline(client, surface, logger)
//	controller := pagination.NewController(pipeline, pagination.DefaultControllerConfig(), logger)
//	defer controller.Close()
//
//	controller.OnReady(ctx)        // first page
//	controller.OnScroll(ctx, pos)  // debounced, loads when near the bottom
//
// The controller:
//   - runs the pipeline once when the session is ready
//   - debounces scroll notifications (default 200ms idle window)
//   - loads the next page when viewport+offset is within 1000px of the
//     document bottom
//   - never runs two pipelines at once; scrolls during a run are dropped
//
// The pipeline shows the loader, requests one page, appends one photo
// wrapper per record in response order, or a single generic error message
// when the request fails, and always hides the loader again.
package pagination
