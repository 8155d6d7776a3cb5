// Package derivative maps request paths to image derivatives and produces
// them on demand.
//
// A derivative name encodes its source and transform:
//
//	photo_mod_w300_h200_q80.jpg   crop to 300x200, quality 80
//	photo_mod_w640.webp           640 wide, converted to WebP
//	photo_mod.png                 re-encode only, converted to PNG
//
// Encode always writes modifiers in w, h, q order. Decode accepts any order,
// ignores unknown tokens and lets a repeated modifier override the earlier
// one.
//
// Cache.GetOrCreate is the entry point for the HTTP layer. It holds no locks:
// the destination is checked before generation and written with an atomic
// rename, so concurrent requests for the same derivative at worst duplicate
// work and always leave one complete file.
//
// Purge removes every derivative and thumbnail of a source. Nothing else
// invalidates derivatives; overwriting a source in place leaves stale
// derivatives that keep being served.
package derivative
