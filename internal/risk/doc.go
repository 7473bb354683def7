// Package risk scores vulnerabilities by fusing heterogeneous signals
// (CVSS, EPSS, KEV, asset criticality, exposure, exploit and patch
// availability, age) into a single weighted score with a risk level and
// a data-availability confidence. Scoring is a pure function of the
// extracted factors; no I/O happens here.
package risk
