package contract

// lensHubABI is the subset of the LensHub interface used to submit signed
// publications, including the custom errors it reverts with
const lensHubABI = `[
  {
    "type": "function",
    "name": "postWithSig",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "vars",
        "type": "tuple",
        "internalType": "struct DataTypes.PostWithSigData",
        "components": [
          {
            "name": "profileId",
            "type": "uint256",
            "internalType": "uint256"
          },
          {
            "name": "contentURI",
            "type": "string",
            "internalType": "string"
          },
          {
            "name": "collectModule",
            "type": "address",
            "internalType": "address"
          },
          {
            "name": "collectModuleInitData",
            "type": "bytes",
            "internalType": "bytes"
          },
          {
            "name": "referenceModule",
            "type": "address",
            "internalType": "address"
          },
          {
            "name": "referenceModuleInitData",
            "type": "bytes",
            "internalType": "bytes"
          },
          {
            "name": "sig",
            "type": "tuple",
            "internalType": "struct DataTypes.EIP712Signature",
            "components": [
              {
                "name": "v",
                "type": "uint8",
                "internalType": "uint8"
              },
              {
                "name": "r",
                "type": "bytes32",
                "internalType": "bytes32"
              },
              {
                "name": "s",
                "type": "bytes32",
                "internalType": "bytes32"
              },
              {
                "name": "deadline",
                "type": "uint256",
                "internalType": "uint256"
              }
            ]
          }
        ]
      }
    ],
    "outputs": [
      {
        "name": "",
        "type": "uint256",
        "internalType": "uint256"
      }
    ]
  },
  {
    "type": "function",
    "name": "commentWithSig",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "vars",
        "type": "tuple",
        "internalType": "struct DataTypes.CommentWithSigData",
        "components": [
          {
            "name": "profileId",
            "type": "uint256",
            "internalType": "uint256"
          },
          {
            "name": "contentURI",
            "type": "string",
            "internalType": "string"
          },
          {
            "name": "profileIdPointed",
            "type": "uint256",
            "internalType": "uint256"
          },
          {
            "name": "pubIdPointed",
            "type": "uint256",
            "internalType": "uint256"
          },
          {
            "name": "referenceModuleData",
            "type": "bytes",
            "internalType": "bytes"
          },
          {
            "name": "collectModule",
            "type": "address",
            "internalType": "address"
          },
          {
            "name": "collectModuleInitData",
            "type": "bytes",
            "internalType": "bytes"
          },
          {
            "name": "referenceModule",
            "type": "address",
            "internalType": "address"
          },
          {
            "name": "referenceModuleInitData",
            "type": "bytes",
            "internalType": "bytes"
          },
          {
            "name": "sig",
            "type": "tuple",
            "internalType": "struct DataTypes.EIP712Signature",
            "components": [
              {
                "name": "v",
                "type": "uint8",
                "internalType": "uint8"
              },
              {
                "name": "r",
                "type": "bytes32",
                "internalType": "bytes32"
              },
              {
                "name": "s",
                "type": "bytes32",
                "internalType": "bytes32"
              },
              {
                "name": "deadline",
                "type": "uint256",
                "internalType": "uint256"
              }
            ]
          }
        ]
      }
    ],
    "outputs": [
      {
        "name": "",
        "type": "uint256",
        "internalType": "uint256"
      }
    ]
  },
  {
    "type": "function",
    "name": "mirrorWithSig",
    "stateMutability": "nonpayable",
    "inputs": [
      {
        "name": "vars",
        "type": "tuple",
        "internalType": "struct DataTypes.MirrorWithSigData",
        "components": [
          {
            "name": "profileId",
            "type": "uint256",
            "internalType": "uint256"
          },
          {
            "name": "profileIdPointed",
            "type": "uint256",
            "internalType": "uint256"
          },
          {
            "name": "pubIdPointed",
            "type": "uint256",
            "internalType": "uint256"
          },
          {
            "name": "referenceModuleData",
            "type": "bytes",
            "internalType": "bytes"
          },
          {
            "name": "referenceModule",
            "type": "address",
            "internalType": "address"
          },
          {
            "name": "referenceModuleInitData",
            "type": "bytes",
            "internalType": "bytes"
          },
          {
            "name": "sig",
            "type": "tuple",
            "internalType": "struct DataTypes.EIP712Signature",
            "components": [
              {
                "name": "v",
                "type": "uint8",
                "internalType": "uint8"
              },
              {
                "name": "r",
                "type": "bytes32",
                "internalType": "bytes32"
              },
              {
                "name": "s",
                "type": "bytes32",
                "internalType": "bytes32"
              },
              {
                "name": "deadline",
                "type": "uint256",
                "internalType": "uint256"
              }
            ]
          }
        ]
      }
    ],
    "outputs": [
      {
        "name": "",
        "type": "uint256",
        "internalType": "uint256"
      }
    ]
  },
  {
    "type": "error",
    "name": "SignatureExpired",
    "inputs": []
  },
  {
    "type": "error",
    "name": "SignatureInvalid",
    "inputs": []
  },
  {
    "type": "error",
    "name": "NotProfileOwnerOrDispatcher",
    "inputs": []
  },
  {
    "type": "error",
    "name": "PublicationDoesNotExist",
    "inputs": []
  },
  {
    "type": "error",
    "name": "CollectModuleNotWhitelisted",
    "inputs": []
  },
  {
    "type": "error",
    "name": "ReferenceModuleNotWhitelisted",
    "inputs": []
  },
  {
    "type": "error",
    "name": "CannotCommentOnSelf",
    "inputs": []
  },
  {
    "type": "error",
    "name": "TokenDoesNotExist",
    "inputs": []
  },
  {
    "type": "error",
    "name": "Paused",
    "inputs": []
  },
  {
    "type": "error",
    "name": "PublishingPaused",
    "inputs": []
  },
  {
    "type": "error",
    "name": "CallerNotWhitelistedModule",
    "inputs": []
  },
  {
    "type": "error",
    "name": "NotWhitelisted",
    "inputs": []
  }
]`
