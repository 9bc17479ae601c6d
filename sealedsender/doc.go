// Package sealedsender hides the sender of a message from the transport.
//
// An inner message (pairwise, pre-key, sender key or plaintext) is bound to
// the sender certificate in an UnidentifiedSenderMessageContent, which is then
// sealed to one recipient (v1) or to many at once (v2). Only the recipient can
// unseal it and learn, from the certificate, who sent it.
//
// Cipher.Decrypt works in two stages. Failures while unsealing are returned
// as is, since the sender is unknown. Once the certificate is recovered every
// failure is returned as a *KnownSenderError carrying the sender. A message
// from the local device itself yields ErrSelfSend before the certificate is
// even validated.
package sealedsender
