/*
Package approval collects signer approvals for queued token creation
requests.

Each request gets its own signature set with a fixed signer list, copied
from the factory at submission. Signers approve independently and can
withdraw an approval as long as the request is pending. The quorum rule is
all-but-one of the signer set: the signature that completes quorum is not
recorded but consumed, triggering execution of the request through the
injected Executor within the same transaction. Every sign action is
attested through the injected Notifier, and withdrawing a signature
revokes its attestation.
*/
package approval
