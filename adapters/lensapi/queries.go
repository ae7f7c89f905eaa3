package lensapi

type operation struct {
	name  string
	query string
}

var (
	challengeQuery = operation{name: "Challenge", query: `query Challenge($request: ChallengeRequest!) {
  challenge(request: $request) {
    text
  }
}`}

	authenticateMutation = operation{name: "Authenticate", query: `mutation Authenticate($request: SignedAuthChallenge!) {
  authenticate(request: $request) {
    accessToken
    refreshToken
  }
}`}

	createPostTypedData = operation{name: "CreatePostTypedData", query: `mutation CreatePostTypedData($request: CreatePublicPostRequest!) {
  createPostTypedData(request: $request) {
    id
    expiresAt
    typedData {
      types {
        PostWithSig {
          name
          type
        }
      }
      domain {
        name
        chainId
        version
        verifyingContract
      }
      value {
        nonce
        deadline
        profileId
        contentURI
        collectModule
        collectModuleInitData
        referenceModule
        referenceModuleInitData
      }
    }
  }
}`}

	createCommentTypedData = operation{name: "CreateCommentTypedData", query: `mutation CreateCommentTypedData($request: CreatePublicCommentRequest!) {
  createCommentTypedData(request: $request) {
    id
    expiresAt
    typedData {
      types {
        CommentWithSig {
          name
          type
        }
      }
      domain {
        name
        chainId
        version
        verifyingContract
      }
      value {
        nonce
        deadline
        profileId
        profileIdPointed
        pubIdPointed
        contentURI
        referenceModuleData
        collectModule
        collectModuleInitData
        referenceModule
        referenceModuleInitData
      }
    }
  }
}`}

	createMirrorTypedData = operation{name: "CreateMirrorTypedData", query: `mutation CreateMirrorTypedData($request: CreateMirrorRequest!) {
  createMirrorTypedData(request: $request) {
    id
    expiresAt
    typedData {
      types {
        MirrorWithSig {
          name
          type
        }
      }
      domain {
        name
        chainId
        version
        verifyingContract
      }
      value {
        nonce
        deadline
        profileId
        profileIdPointed
        pubIdPointed
        referenceModuleData
        referenceModule
        referenceModuleInitData
      }
    }
  }
}`}

	defaultProfileQuery = operation{name: "DefaultProfile", query: `query DefaultProfile($request: DefaultProfileRequest!) {
  defaultProfile(request: $request) {
    id
    handle
  }
}`}

	validateMetadataQuery = operation{name: "ValidatePublicationMetadata", query: `query ValidatePublicationMetadata($request: ValidatePublicationMetadataRequest!) {
  validatePublicationMetadata(request: $request) {
    valid
    reason
  }
}`}
)
