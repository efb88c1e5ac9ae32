// Package interceptor provides stock client.Interceptor implementations.
//
// Register them on a builder under any name; the name is the interceptor's
// identity in the chain:
//
//	b := factory.NewBuilder().
//		AddOrReplaceInterceptor("request-id", interceptor.RequestID("")).
//		AddOrReplaceInterceptor("auth", interceptor.Auth(interceptor.BearerAuth(token))).
//		AddOrReplaceInterceptor("logging", interceptor.Logging(log))
//
// Before hooks run in registration order before every attempt; After hooks
// run in the same order once a response head or transport failure exists.
package interceptor
