// Package synth implements the query synthesizer: free-text listener intent
// goes out to a generative language model as a structured instruction, and
// the one-line delimited answer comes back as a catalog search directive.
//
// The model's output is treated as untrusted text. The only contract is the
// "terms||market[||summary]" line shape; anything else is tagged
// [shared.ErrSynthesisFailed] rather than indexed into blindly. Field
// contents are deliberately not validated here, since a bad market or query
// string surfaces harmlessly as an empty catalog result.
package synth
