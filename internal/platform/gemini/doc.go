// Package gemini implements the generation.ConceptGenerator and
// generation.PaletteRenderer interfaces using Google's Gemini API.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's domain logic to Google's external image
// generation service. It translates between the application's domain models
// and the Gemini API without exposing the details of the external service to
// the core application: prompt assembly, multimodal request formatting,
// retry with exponential backoff for transient errors, and translation of
// API failures to generation package errors all live here.
package gemini
