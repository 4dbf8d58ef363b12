// Package generation defines the boundary interfaces for image generation
// and palette rendering. The concrete Gemini-backed implementation lives in
// platform/gemini; the task engine depends only on these interfaces.
package generation
