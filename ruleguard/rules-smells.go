package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// 1) Two consecutive guard ifs with the same return => mergeable with ||
	//    e.g.:
	//      if a { return err }
	//      if b { return err }
	//    => if a || b { return err }
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	// Same pattern with continue (inside loops)
	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	// 2) Nested for-loops: not always wrong, but a useful refactor/extract signal
	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

func manifestMisuse(m dsl.Matcher) {
	// A manifest must be validated before it drives a server, a build or
	// a compose rendering; dropping the error defeats the aggregate check.
	m.Match(`$m.Validate()`).
		Where(m["m"].Type.Is(`*manifest.Manifest`)).
		Report(`discarded Validate result; handle the *ValidationError`)

	// Parse + Load pairs resolve ${env...}; raw yaml.Unmarshal on manifest
	// bytes skips substitution and normalization.
	m.Match(`yaml.Unmarshal($data, $target)`).
		Where(m["target"].Type.Is(`*manifest.Manifest`)).
		Report(`unmarshal bypasses env substitution; use manifest.Parse or manifest.Load`)
}
