/*
Package attestation keeps notarized records of sign actions, standing in
for an external trust anchoring service. The coordination core only
depends on recording and revoking; everything else about the records is an
implementation detail of this package.
*/
package attestation
