//go:build vulkan_integration

// backend_vulkan.go - goki/vulkan-backed CodecBackend
//
// This mirrors voodoo_vulkan.go's offscreen-instance bring-up: no
// swapchain, a single graphics/compute queue, host-visible device memory
// standing in for pitched input/output surfaces, and a vk.Fence per
// completion event. It requires a real ICD and is excluded from normal
// builds by the vulkan_integration build tag; run with -tags
// vulkan_integration against hardware or a software ICD like lavapipe.
//
// License: GPLv3 or later

package afscore

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
)

func safeCString(s string) string { return s + "\x00" }

type vulkanFenceEvent struct {
	device vk.Device
	fence  vk.Fence
}

func (e *vulkanFenceEvent) Wait(ctx context.Context) error {
	done := make(chan vk.Result, 1)
	go func() {
		done <- vk.WaitForFences(e.device, 1, []vk.Fence{e.fence}, vk.True, ^uint64(0))
	}()
	select {
	case res := <-done:
		if res != vk.Success {
			return wrapErr("vulkanFenceEvent.Wait", KindEncoderError, fmt.Errorf("vkWaitForFences: %d", res))
		}
		return nil
	case <-ctx.Done():
		return wrapErr("vulkanFenceEvent.Wait", KindTimeout, ctx.Err())
	}
}

type vulkanAlloc struct {
	buffer vk.Buffer
	memory vk.DeviceMemory
	size   int
}

// vulkanBackend implements CodecBackend over a real Vulkan instance,
// grounded on the teacher's VulkanBackend offscreen bring-up
// (voodoo_vulkan.go): no window/swapchain, host-visible memory for
// readback, a command pool for one-shot transfer submissions.
type vulkanBackend struct {
	mu sync.Mutex

	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queue          vk.Queue
	queueFamily    uint32
	commandPool    vk.CommandPool

	cfg    EncoderConfig
	opened bool

	surfaces map[InputSurface]*vulkanAlloc
	streams  map[Bitstream]*vulkanAlloc
	nextID   uintptr
}

// newVulkanBackend brings up a headless Vulkan instance/device exactly the
// way voodoo_vulkan.go's initVulkan does, minus the render pass/pipeline
// machinery this core has no use for (there is no rasterization here, only
// buffer allocation and host-visible staging).
func newVulkanBackend() (*vulkanBackend, error) {
	vb := &vulkanBackend{
		surfaces: make(map[InputSurface]*vulkanAlloc),
		streams:  make(map[Bitstream]*vulkanAlloc),
	}
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return nil, wrapErr("newVulkanBackend", KindDeviceUnavailable, err)
	}
	if err := vk.Init(); err != nil {
		return nil, wrapErr("newVulkanBackend", KindDeviceUnavailable, err)
	}

	appInfo := vk.ApplicationInfo{
		SType:         vk.StructureTypeApplicationInfo,
		PEngineName:   safeCString("afsencode"),
		EngineVersion: vk.MakeVersion(1, 0, 0),
		ApiVersion:    vk.MakeVersion(1, 1, 0),
	}
	createInfo := vk.InstanceCreateInfo{SType: vk.StructureTypeInstanceCreateInfo, PApplicationInfo: &appInfo}
	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return nil, wrapErr("newVulkanBackend", KindDeviceUnavailable, fmt.Errorf("vkCreateInstance: %d", res))
	}
	vb.instance = instance
	vk.InitInstance(instance)

	if err := vb.selectDevice(); err != nil {
		return nil, err
	}
	if err := vb.createCommandPool(); err != nil {
		return nil, err
	}
	return vb, nil
}

func (vb *vulkanBackend) selectDevice() error {
	var count uint32
	vk.EnumeratePhysicalDevices(vb.instance, &count, nil)
	if count == 0 {
		return newErr("vulkanBackend.selectDevice", KindDeviceUnavailable)
	}
	devices := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(vb.instance, &count, devices)

	for _, dev := range devices {
		var qCount uint32
		vk.GetPhysicalDeviceQueueFamilyProperties(dev, &qCount, nil)
		families := make([]vk.QueueFamilyProperties, qCount)
		vk.GetPhysicalDeviceQueueFamilyProperties(dev, &qCount, families)
		for i, f := range families {
			f.Deref()
			if f.QueueFlags&vk.QueueFlags(vk.QueueComputeBit) != 0 {
				vb.physicalDevice = dev
				vb.queueFamily = uint32(i)

				priority := float32(1.0)
				qInfo := vk.DeviceQueueCreateInfo{
					SType:            vk.StructureTypeDeviceQueueCreateInfo,
					QueueFamilyIndex: vb.queueFamily,
					QueueCount:       1,
					PQueuePriorities: []float32{priority},
				}
				devInfo := vk.DeviceCreateInfo{
					SType:                vk.StructureTypeDeviceCreateInfo,
					QueueCreateInfoCount: 1,
					PQueueCreateInfos:    []vk.DeviceQueueCreateInfo{qInfo},
				}
				var device vk.Device
				if res := vk.CreateDevice(dev, &devInfo, nil, &device); res != vk.Success {
					continue
				}
				vb.device = device
				var queue vk.Queue
				vk.GetDeviceQueue(device, vb.queueFamily, 0, &queue)
				vb.queue = queue
				return nil
			}
		}
	}
	return newErr("vulkanBackend.selectDevice", KindDeviceUnavailable)
}

func (vb *vulkanBackend) createCommandPool() error {
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: vb.queueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(vb.device, &info, nil, &pool); res != vk.Success {
		return wrapErr("vulkanBackend.createCommandPool", KindDeviceUnavailable, fmt.Errorf("vkCreateCommandPool: %d", res))
	}
	vb.commandPool = pool
	return nil
}

func (vb *vulkanBackend) findMemoryType(typeFilter uint32, properties vk.MemoryPropertyFlags) (uint32, error) {
	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vb.physicalDevice, &memProps)
	memProps.Deref()
	for i := uint32(0); i < memProps.MemoryTypeCount; i++ {
		memProps.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (memProps.MemoryTypes[i].PropertyFlags&properties) == properties {
			return i, nil
		}
	}
	return 0, newErr("vulkanBackend.findMemoryType", KindOutOfMemory)
}

// allocHostVisible allocates a host-visible, host-coherent buffer of size
// bytes, standing in for a pitched input or output surface.
func (vb *vulkanBackend) allocHostVisible(size int, usage vk.BufferUsageFlagBits) (*vulkanAlloc, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if res := vk.CreateBuffer(vb.device, &info, nil, &buf); res != vk.Success {
		return nil, wrapErr("vulkanBackend.allocHostVisible", KindOutOfMemory, fmt.Errorf("vkCreateBuffer: %d", res))
	}
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(vb.device, buf, &reqs)
	reqs.Deref()
	typeIdx, err := vb.findMemoryType(reqs.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIdx,
	}
	var mem vk.DeviceMemory
	if res := vk.AllocateMemory(vb.device, &allocInfo, nil, &mem); res != vk.Success {
		return nil, wrapErr("vulkanBackend.allocHostVisible", KindOutOfMemory, fmt.Errorf("vkAllocateMemory: %d", res))
	}
	vk.BindBufferMemory(vb.device, buf, mem, 0)
	return &vulkanAlloc{buffer: buf, memory: mem, size: size}, nil
}

func (vb *vulkanBackend) allocID() uintptr {
	vb.nextID++
	return vb.nextID
}

func (vb *vulkanBackend) OpenSession(cfg EncoderConfig) error {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	if err := cfg.Validate(); err != nil {
		return err
	}
	vb.cfg = cfg
	vb.opened = true
	return nil
}

func (vb *vulkanBackend) CreateInputBuffer(w, h int, csp Csp) (InputSurface, error) {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	size, err := storageSize(FrameInfo{Csp: csp, Width: w, Height: h})
	if err != nil {
		return 0, err
	}
	a, err := vb.allocHostVisible(size, vk.BufferUsageTransferDstBit)
	if err != nil {
		return 0, err
	}
	id := InputSurface(vb.allocID())
	vb.surfaces[id] = a
	return id, nil
}

func (vb *vulkanBackend) CreateBitstreamBuffer(size int) (Bitstream, error) {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	a, err := vb.allocHostVisible(size, vk.BufferUsageTransferSrcBit)
	if err != nil {
		return 0, err
	}
	id := Bitstream(vb.allocID())
	vb.streams[id] = a
	return id, nil
}

func (vb *vulkanBackend) RegisterAsyncEvent() (CompletionEvent, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var fence vk.Fence
	if res := vk.CreateFence(vb.device, &info, nil, &fence); res != vk.Success {
		return nil, wrapErr("vulkanBackend.RegisterAsyncEvent", KindDeviceUnavailable, fmt.Errorf("vkCreateFence: %d", res))
	}
	return &vulkanFenceEvent{device: vb.device, fence: fence}, nil
}

func (vb *vulkanBackend) RegisterResource(ptr DevPtr, w, h, pitch int) (RegisteredResource, error) {
	return RegisteredResource(ptr), nil
}

func (vb *vulkanBackend) MapInputResource(r RegisteredResource) (InputSurface, error) {
	return InputSurface(r), nil
}

// WriteInputSurface maps the surface's host-visible memory, copies data in
// (clamped to the allocation's size), and unmaps, standing in for a real
// vendor SDK's map_input_surface/copy-to-device step.
func (vb *vulkanBackend) WriteInputSurface(s InputSurface, data []byte) error {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	a, ok := vb.surfaces[s]
	if !ok {
		return newErr("vulkanBackend.WriteInputSurface", KindEncoderError)
	}
	var mapped unsafe.Pointer
	if res := vk.MapMemory(vb.device, a.memory, 0, vk.DeviceSize(a.size), 0, &mapped); res != vk.Success {
		return wrapErr("vulkanBackend.WriteInputSurface", KindDeviceUnavailable, fmt.Errorf("vkMapMemory: %d", res))
	}
	defer vk.UnmapMemory(vb.device, a.memory)
	copy(unsafe.Slice((*byte)(mapped), a.size), data)
	return nil
}

// EncodePicture does not touch pixel data (WriteInputSurface has already
// staged it into the surface's host-visible memory); for a vulkanFenceEvent
// it only resets the fence and submits an empty batch that signals it,
// mirroring how this core treats the backend as a pure buffer/fence broker
// rather than a real encode ASIC.
func (vb *vulkanBackend) EncodePicture(p PicParams) (EncodeResult, error) {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	if !vb.opened {
		return 0, newErr("vulkanBackend.EncodePicture", KindDeviceUnavailable)
	}
	if fe, ok := p.Event.(*vulkanFenceEvent); ok {
		vk.ResetFences(vb.device, 1, []vk.Fence{fe.fence})
		// No actual GPU work is submitted for a headless buffer broker;
		// signal immediately as if the (absent) encode kernel completed.
		// A real vendor SDK shim would submit to vb.queue here instead.
		signalInfo := vk.SubmitInfo{SType: vk.StructureTypeSubmitInfo}
		vk.QueueSubmit(vb.queue, 1, []vk.SubmitInfo{signalInfo}, fe.fence)
	}
	return EncodeSuccess, nil
}

func (vb *vulkanBackend) LockBitstream(bs Bitstream) ([]byte, error) {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	a, ok := vb.streams[bs]
	if !ok {
		return nil, newErr("vulkanBackend.LockBitstream", KindEncoderError)
	}
	var mapped unsafe.Pointer
	vk.MapMemory(vb.device, a.memory, 0, vk.DeviceSize(a.size), 0, &mapped)
	out := make([]byte, a.size)
	copy(out, unsafe.Slice((*byte)(mapped), a.size))
	return out, nil
}

func (vb *vulkanBackend) UnlockBitstream(bs Bitstream) error {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	a, ok := vb.streams[bs]
	if !ok {
		return newErr("vulkanBackend.UnlockBitstream", KindEncoderError)
	}
	vk.UnmapMemory(vb.device, a.memory)
	return nil
}

func (vb *vulkanBackend) DestroyInputBuffer(s InputSurface) error {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	if a, ok := vb.surfaces[s]; ok {
		vk.DestroyBuffer(vb.device, a.buffer, nil)
		vk.FreeMemory(vb.device, a.memory, nil)
		delete(vb.surfaces, s)
	}
	return nil
}

func (vb *vulkanBackend) DestroyBitstreamBuffer(bs Bitstream) error {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	if a, ok := vb.streams[bs]; ok {
		vk.DestroyBuffer(vb.device, a.buffer, nil)
		vk.FreeMemory(vb.device, a.memory, nil)
		delete(vb.streams, bs)
	}
	return nil
}

func (vb *vulkanBackend) Close() error {
	vb.mu.Lock()
	defer vb.mu.Unlock()
	vk.DestroyCommandPool(vb.device, vb.commandPool, nil)
	vk.DestroyDevice(vb.device, nil)
	vk.DestroyInstance(vb.instance, nil)
	vb.opened = false
	return nil
}
