package tensor

// Backend is the compute interface every device implementation satisfies.
//
// The operation set is shaped by the needs of volumetric (video) CNNs:
// 3D convolution and pooling with independent (depth, height, width) stride
// and padding, the elementwise and reduction ops batch normalization is
// built from, and matmul for classifier heads.
//
// Stride and padding triples are always ordered (depth, height, width).
//
// Backward variants exist for the ops whose gradients cannot be expressed
// as compositions of forward ops; the autodiff layer delegates to them.
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	// When the operands share a shape and a holds the only reference to
	// its buffer, an implementation may consume a as the result's storage.
	// Callers that need a to survive must hold an extra reference first
	// (Clone or ForceNonUnique); the autodiff decorator does this for
	// every recorded operand.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MatMul multiplies two 2D tensors: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Conv3D convolves input [N, Cin, D, H, W] with kernel
	// [Cout, Cin, KD, KH, KW], producing [N, Cout, Dout, Hout, Wout].
	Conv3D(input, kernel *RawTensor, stride, padding [3]int) *RawTensor
	Conv3DInputBackward(input, kernel, grad *RawTensor, stride, padding [3]int) *RawTensor
	Conv3DKernelBackward(input, kernel, grad *RawTensor, stride, padding [3]int) *RawTensor

	// MaxPool3D pools with an implicit -inf padding border.
	MaxPool3D(input *RawTensor, kernel, stride, padding [3]int) *RawTensor
	MaxPool3DBackward(input, grad *RawTensor, maxIndices []int) *RawTensor

	// AvgPool3D pools without padding. A 1x1x1 kernel with stride s is a
	// plain subsample, which is how the parameter-free residual shortcut
	// downsamples its input.
	AvgPool3D(input *RawTensor, kernel, stride [3]int) *RawTensor
	AvgPool3DBackward(input, grad *RawTensor, kernel, stride [3]int) *RawTensor

	// ReLU clamps negative values to zero.
	ReLU(x *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Scalar operations.
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor
	SubScalar(x *RawTensor, scalar any) *RawTensor
	DivScalar(x *RawTensor, scalar any) *RawTensor

	// Element-wise math.
	Sqrt(x *RawTensor) *RawTensor
	Rsqrt(x *RawTensor) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	Argmax(x *RawTensor, dim int) *RawTensor

	// Cat concatenates tensors along a dimension. The residual shortcut's
	// channel zero-padding is a Cat with a zero tensor along dim 1.
	Cat(tensors []*RawTensor, dim int) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
